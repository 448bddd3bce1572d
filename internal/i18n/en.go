package i18n

var messagesEN = map[string]string{
	// ========== 输入错误 ==========
	"SP0100": "irreducible control flow",
	"SP0101": "loop bound missing",
	"SP0102": "multiple function exit blocks",
	"SP0103": "compensation exceeds immediate width",
	"SP0104": "empty function",
	"SP0105": "unreachable block",
	"SP0106": "unknown block",
	"SP0107": "entry block has predecessors",
	"SP0108": "invalid function description",

	// ========== 内部错误 ==========
	"SP0200": "equivalence class without unique root",
	"SP0201": "long instruction in second issue slot",
	"SP0202": "long instruction shares a bundle",
	"SP0203": "unresolvable scheduling dependencies",
	"SP0204": "invalid control dependency edge",
	"SP0205": "fixed point did not converge",
	"SP0206": "unsound dominator",
	"SP0207": "compensation does not conserve access counts",
	"SP0208": "instruction scheduled zero or multiple times",
	"SP0209": "analysis panicked",

	// ========== 软失败 ==========
	"SP0300": "no bounded end-dominators",

	// ========== 修复建议 ==========
	"suggestion.SP0100.0": "restructure the loop so that it has a single entry block",
	"suggestion.SP0101.0": "annotate the loop header with a bound, e.g. `bound: {min: 1, max: 8}`",
	"suggestion.SP0101.1": "or set `loop_bounds = \"default\"` in the configuration",
	"suggestion.SP0102.0": "merge the return blocks into a single exit block before single-path conversion",
	"suggestion.SP0103.0": "split the basic block so that fewer accesses are compensated on one edge",
	"suggestion.SP0105.0": "remove blocks that cannot be reached from the entry block",
	"suggestion.SP0300.0": "the function can still be converted using opposite-predicate compensation",

	// ========== 其他 ==========
	"error.unknown": "unknown error",
	"note.internal": "this is an internal error of the single-path transformation",
	"label.help":    "help",
	"label.note":    "note",
}
