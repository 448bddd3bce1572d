package memaccess

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// ============================================================================
// 递减计数器补偿
// ============================================================================
//
// 入口把计数器初始化为最大访问次数，补偿边上扣除该边的补偿值，
// 结束块把剩余值交给补偿函数，由它补做剩下的访问。

// Opcode 计数器代码使用的指令
type Opcode string

const (
	OpLIi    Opcode = "LIi"    // 短立即数加载
	OpLIl    Opcode = "LIl"    // 长立即数加载
	OpSUBi   Opcode = "SUBi"   // 减短立即数
	OpSUBl   Opcode = "SUBl"   // 减长立即数
	OpPHI    Opcode = "PHI"    // 合并各前驱的计数器
	OpCOPY   Opcode = "COPY"   // 寄存器复制
	OpCALLND Opcode = "CALLND" // 调用补偿函数（无延迟槽）
)

// 固定寄存器：补偿函数的两个参数
const (
	RegMax     = "r23" // 最大补偿次数
	RegCounter = "r24" // 计数器剩余值
)

// Position 指令插入的位置
type Position int

const (
	AtStart      Position = iota // 块首（PHI 之后）
	BeforeBranch                 // 块尾跳转之前
)

// CounterInstr 计数器代码中的一条指令
type CounterInstr struct {
	Block cfg.BlockID
	At    Position
	Op    Opcode
	Dst   string
	Srcs  []string
	// Incoming PHI 的各个来源块，与 Srcs 一一对应
	Incoming []cfg.BlockID
	Imm      int64
	// Negated 以取反的默认谓词执行，只在整个函数被禁用时生效
	Negated bool
	Symbol  string
}

func (i CounterInstr) String() string {
	var b strings.Builder
	if i.Negated {
		b.WriteString("(!p0) ")
	}
	b.WriteString(string(i.Op))
	if i.Dst != "" {
		fmt.Fprintf(&b, " %s =", i.Dst)
	}
	switch i.Op {
	case OpPHI:
		for k, src := range i.Incoming {
			fmt.Fprintf(&b, " [%s, %s]", i.Srcs[k], src)
		}
	case OpCALLND:
		fmt.Fprintf(&b, " %s", i.Symbol)
	case OpLIi, OpLIl:
		fmt.Fprintf(&b, " %d", i.Imm)
	default:
		for _, s := range i.Srcs {
			fmt.Fprintf(&b, " %s", s)
		}
		if i.Op == OpSUBi || i.Op == OpSUBl {
			fmt.Fprintf(&b, ", %d", i.Imm)
		}
	}
	return b.String()
}

// Plan 计数器补偿方案
type Plan struct {
	Instrs []CounterInstr
	// Registers 每个块末尾保存计数器的寄存器
	Registers map[cfg.BlockID]string
	// Cost 至少会增加的指令数（PHI 与 COPY 不计）
	Cost int
}

// InBlock 插入到某个块的指令
func (p *Plan) InBlock(id cfg.BlockID) []CounterInstr {
	var out []CounterInstr
	for _, in := range p.Instrs {
		if in.Block == id {
			out = append(out, in)
		}
	}
	return out
}

type planner struct {
	fn       *cfg.Function
	comp     Compensation
	width    int64
	symbol   string
	rootLike bool
	plan     *Plan
	vregs    int
}

func (p *planner) vreg() string {
	p.vregs++
	return fmt.Sprintf("%%c%d", p.vregs)
}

func (p *planner) emit(in CounterInstr) {
	p.plan.Instrs = append(p.plan.Instrs, in)
}

func (p *planner) load(imm int64) Opcode {
	if imm > p.width {
		return OpLIl
	}
	return OpLIi
}

// PlanCounter 生成递减计数器补偿代码
//
// bounds 为 Bounds 求出的最少与最多访问次数。块按广度优先分配计数器寄存器，
// 合并块等所有前驱都分配后再处理。函数必须只有一个结束块。
func PlanCounter(fn *cfg.Function, comp Compensation, bounds Range, rootLike bool, c *config.Config) (*Plan, error) {
	maxIter, log := limits(c)
	width := int64(config.DefaultImmediateWidth)
	symbol := config.DefaultCompensationFunction
	if c != nil {
		width, symbol = c.ImmediateWidth, c.CompensationFunction
	}
	if bounds.Width() == 0 {
		return nil, errors.Internal(errors.SP0207, "no compensation needed").InFunction(fn.Name)
	}
	end, ok := fn.End()
	if !ok {
		return nil, errors.Fatal(errors.SP0102, "function has %d exit blocks", len(fn.Ends())).
			InFunction(fn.Name)
	}

	p := &planner{
		fn:       fn,
		comp:     comp,
		width:    width,
		symbol:   symbol,
		rootLike: rootLike,
		plan:     &Plan{Registers: make(map[cfg.BlockID]string)},
	}
	regs := p.plan.Registers

	queue := []cfg.BlockID{fn.Entry}
	queued := cfg.NewSet(fn.Entry)
	limit := maxIter * (fn.Len() + 1)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > limit {
			return nil, errors.Internal(errors.SP0205, "counter placement exceeded %d steps", limit).
				InFunction(fn.Name)
		}
		cur := queue[0]
		queue = queue[1:]
		queued.Remove(cur)

		for _, s := range fn.Succs(cur) {
			if _, done := regs[s]; s != cur && !done && queued.Add(s) {
				queue = append(queue, s)
			}
		}

		preds := fn.Preds(cur)
		switch {
		case len(preds) == 0:
			p.entry(cur, bounds.Max)

		case len(preds) == 1:
			pred := preds[0]
			dec, ok := comp[cfg.BlockEdge{From: pred, To: cur}]
			if !ok {
				regs[cur] = regs[pred]
				continue
			}
			if dec > width {
				return nil, errors.Fatal(errors.SP0103, "decrement of %d exceeds immediate width %d", dec, width).
					InFunction(fn.Name).AtBlock(fn.NameOf(cur))
			}
			dst := p.vreg()
			regs[cur] = dst
			p.plan.Cost++
			p.emit(CounterInstr{Block: cur, At: AtStart, Op: OpSUBi, Dst: dst, Srcs: []string{regs[pred]}, Imm: dec})

		default:
			if _, ok := regs[cur]; !ok {
				regs[cur] = p.vreg()
			}
			ready := true
			for _, pred := range preds {
				if _, ok := regs[pred]; !ok {
					ready = false
					break
				}
			}
			if !ready {
				// 前驱在循环中，等回边块分配后再处理
				if queued.Add(cur) {
					queue = append(queue, cur)
				}
				continue
			}
			p.merge(cur, preds)
		}
	}

	if _, ok := regs[end]; !ok {
		return nil, errors.Internal(errors.SP0205, "end block never received a counter").
			InFunction(fn.Name).AtBlock(fn.NameOf(end))
	}
	p.end(end, bounds.Width())

	log.Debug("counter compensation plan",
		zap.String("function", fn.Name),
		zap.Int("instructions", len(p.plan.Instrs)),
		zap.Int("cost", p.plan.Cost),
	)
	return p.plan, nil
}

// entry 初始化计数器
// 只有一个块的函数没有可以扣除的边，直接以 0 初始化参数寄存器
func (p *planner) entry(id cfg.BlockID, maxAccesses int64) {
	reg, init := p.vreg(), maxAccesses
	if p.fn.Len() == 1 {
		reg, init = RegCounter, 0
	}
	p.plan.Registers[id] = reg
	p.plan.Cost++
	p.emit(CounterInstr{Block: id, At: BeforeBranch, Op: p.load(init), Dst: reg, Imm: init})
}

// merge 合并块：各前驱在跳转前扣除各自的补偿值，块首以 PHI 合并
func (p *planner) merge(id cfg.BlockID, preds []cfg.BlockID) {
	regs := p.plan.Registers
	phi := CounterInstr{Block: id, At: AtStart, Op: OpPHI, Dst: regs[id]}
	for _, pred := range preds {
		src := regs[pred]
		if dec := p.comp[cfg.BlockEdge{From: pred, To: id}]; dec != 0 {
			op := OpSUBi
			if dec > p.width {
				op = OpSUBl
			}
			dst := p.vreg()
			p.plan.Cost++
			p.emit(CounterInstr{Block: pred, At: BeforeBranch, Op: op, Dst: dst, Srcs: []string{src}, Imm: dec})
			src = dst
		}
		phi.Srcs = append(phi.Srcs, src)
		phi.Incoming = append(phi.Incoming, pred)
	}
	p.emit(phi)
}

// end 把剩余计数交给补偿函数
// 非根函数被禁用时不扣除任何次数，取反的默认谓词下改为传入最大值
func (p *planner) end(id cfg.BlockID, maxCompensation int64) {
	op := p.load(maxCompensation)
	p.emit(CounterInstr{Block: id, At: BeforeBranch, Op: op, Dst: RegMax, Imm: maxCompensation})
	p.emit(CounterInstr{Block: id, At: BeforeBranch, Op: OpCOPY, Dst: RegCounter, Srcs: []string{p.plan.Registers[id]}})
	if !p.rootLike {
		p.emit(CounterInstr{Block: id, At: BeforeBranch, Op: op, Dst: RegCounter, Imm: maxCompensation, Negated: true})
	}
	p.emit(CounterInstr{Block: id, At: BeforeBranch, Op: OpCALLND, Symbol: p.symbol, Srcs: []string{RegMax, RegCounter}})
	p.plan.Cost += 3
}
