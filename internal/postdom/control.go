package postdom

import (
	"go.uber.org/multierr"

	"github.com/tangzhangming/singlepath/internal/cfg"
	"github.com/tangzhangming/singlepath/internal/errors"
)

// ============================================================================
// 控制依赖
// ============================================================================

// Dependencies 每个块的控制依赖边集合
//
// X 依赖边 (Y, Z)：X 后支配 Z 但不后支配 Y。后支配入口（函数入口或循环头）的块
// 依赖一条入口边；循环头只依赖自己的入口边。
type Dependencies map[cfg.BlockID]cfg.EdgeSet

// Of 块的依赖边，按 Edge.Less 排序
func (d Dependencies) Of(id cfg.BlockID) []cfg.Edge {
	return cfg.SortedEdges(d[id])
}

// Blocks 有依赖边的块，升序
func (d Dependencies) Blocks() []cfg.BlockID {
	ids := make([]cfg.BlockID, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	return cfg.SortIDs(ids)
}

func (d Dependencies) add(id cfg.BlockID, e cfg.Edge) {
	s, ok := d[id]
	if !ok {
		s = cfg.NewEdgeSet()
		d[id] = s
	}
	s.Add(e)
}

// ControlDependencies 计算所有区域中每个块的控制依赖，并校验每条依赖边
func (t *Tree) ControlDependencies() (Dependencies, error) {
	deps := make(Dependencies)
	if err := t.collect(deps); err != nil {
		return nil, err
	}
	if err := t.validate(deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// collect 本区域及内层区域的控制依赖
func (t *Tree) collect(deps Dependencies) error {
	fn := t.fn
	lf := fn.Loops

	for _, block := range cfg.Sorted(keys(t.doms)) {
		if lf.IsHeader(block) {
			deps.add(block, cfg.Edge{Source: cfg.FromEntry(), Target: block})
			continue
		}

		dominees := cfg.NewSet()
		t.dominees(block, dominees)
		for _, dominee := range cfg.Sorted(dominees) {
			if len(fn.Preds(dominee)) == 0 || (t.loop != cfg.NoLoop && lf.Loop(t.loop).Header == dominee) {
				deps.add(block, cfg.Edge{Source: cfg.FromEntry(), Target: dominee})
				continue
			}
			for _, pred := range fn.Preds(dominee) {
				node, ok := fn.FCFGNode(pred, t.loop)
				if !ok {
					return errors.Internal(errors.SP0204, "predecessor %s of %s is outside the region",
						fn.NameOf(pred), fn.NameOf(dominee)).
						InFunction(fn.Name).AtLoop(fn.LoopName(t.loop))
				}
				if t.PostDominates(block, node) {
					continue
				}
				if inner := lf.LoopFor(node); inner != t.loop {
					// 前驱是内层循环：以该循环通往 dominee 的出口边作为依赖边
					for _, e := range lf.Loop(inner).Exits {
						if e.To == dominee {
							deps.add(block, cfg.Edge{Source: cfg.FromBlock(e.From), Target: dominee})
						}
					}
					continue
				}
				deps.add(block, cfg.Edge{Source: cfg.FromBlock(node), Target: dominee})
			}
		}
	}

	for _, inner := range t.inner {
		if err := inner.collect(deps); err != nil {
			return err
		}
	}
	return nil
}

// validate 依赖边必须是真实的 CFG 边，入口边只能指向循环头或函数入口
func (t *Tree) validate(deps Dependencies) error {
	fn := t.fn
	var errs error
	for _, id := range deps.Blocks() {
		for _, e := range deps.Of(id) {
			var valid bool
			if src, ok := e.Source.Block(); ok {
				valid = fn.HasEdge(src, e.Target)
			} else {
				valid = fn.Loops.IsHeader(e.Target) || len(fn.Preds(e.Target)) == 0
			}
			if !valid {
				errs = multierr.Append(errs,
					errors.Internal(errors.SP0204, "%s depends on %s", fn.NameOf(id), e).
						InFunction(fn.Name).AtBlock(fn.NameOf(id)))
			}
		}
	}
	return errs
}
