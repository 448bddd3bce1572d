package i18n

var messagesZH = map[string]string{
	// ========== 输入错误 ==========
	"SP0100": "不可归约的控制流",
	"SP0101": "循环缺少迭代次数边界",
	"SP0102": "函数有多个出口块",
	"SP0103": "补偿值超出立即数宽度",
	"SP0104": "空函数",
	"SP0105": "不可达的基本块",
	"SP0106": "未知的基本块",
	"SP0107": "入口块有前驱",
	"SP0108": "非法的函数描述",

	// ========== 内部错误 ==========
	"SP0200": "等价类没有唯一的根",
	"SP0201": "长指令被调度到第二发射槽",
	"SP0202": "长指令与其他指令共享发射包",
	"SP0203": "调度依赖无法满足",
	"SP0204": "非法的控制依赖边",
	"SP0205": "不动点迭代未收敛",
	"SP0206": "支配关系不可靠",
	"SP0207": "补偿后各路径访存次数不一致",
	"SP0208": "指令未被调度或被重复调度",
	"SP0209": "分析过程中发生 panic",

	// ========== 软失败 ==========
	"SP0300": "无法建立有界结束块支配者",

	// ========== 修复建议 ==========
	"suggestion.SP0100.0": "调整循环结构，使其只有一个入口块",
	"suggestion.SP0101.0": "为循环头标注边界，例如 `bound: {min: 1, max: 8}`",
	"suggestion.SP0101.1": "或在配置中设置 `loop_bounds = \"default\"`",
	"suggestion.SP0102.0": "在单路径转换之前把返回块合并为一个出口块",
	"suggestion.SP0103.0": "拆分基本块，减少单条边上需要补偿的访存次数",
	"suggestion.SP0105.0": "删除入口块无法到达的基本块",
	"suggestion.SP0300.0": "该函数仍可使用反谓词填充方式转换",

	// ========== 其他 ==========
	"error.unknown": "未知错误",
	"note.internal": "这是单路径转换的内部错误",
	"label.help":    "帮助",
	"label.note":    "注",
}
