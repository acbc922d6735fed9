package compiler

import (
	"fmt"
	"strings"
)

// link lays out the final assembler source: the top-level program, then the
// body of every function reachable from it in declaration order, then one
// .SPACE block per frame. Functions that are never called are dropped.
func (u *unit) link() (string, error) {
	if err := u.checkRecursion(); err != nil {
		return "", err
	}

	reachable := u.reachableFunctions()

	frames := []*Frame{u.globals}
	builders := []*Builder{u.main}
	for _, fn := range u.funcs.all {
		if !fn.Inline && reachable[fn] {
			frames = append(frames, fn.Frame)
			builders = append(builders, fn.Builder)
		}
	}

	for _, fn := range u.funcs.all {
		if !fn.Inline && fn.Frame.Outstanding() != 0 {
			return "", internalf("%d temporaries of %s were never released", fn.Frame.Outstanding(), fn.QualifiedName())
		}
	}
	if n := u.globals.Outstanding(); n != 0 {
		return "", internalf("%d temporaries of the program were never released", n)
	}

	for _, b := range builders {
		for _, l := range b.lines {
			if l.arg != nil && l.arg.Label != nil && !l.arg.Label.marked {
				return "", internalf("label %s is referenced but never marked", l.arg.Label.Name)
			}
		}
	}

	var sb strings.Builder
	for i, b := range builders {
		if i > 0 {
			sb.WriteByte('\n')
		}
		b.write(&sb)
	}
	sb.WriteByte('\n')
	for _, f := range frames {
		fmt.Fprintf(&sb, "%s: .SPACE %d\n", f.Label, f.Size())
	}
	return sb.String(), nil
}

// reachableFunctions walks the call graph from the top-level program.
func (u *unit) reachableFunctions() map[*Function]bool {
	reachable := make(map[*Function]bool)
	var worklist []*Function

	addReachable := func(edges []callEdge) {
		for _, e := range edges {
			if !reachable[e.callee] {
				reachable[e.callee] = true
				worklist = append(worklist, e.callee)
			}
		}
	}

	addReachable(u.main.calls)
	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]
		addReachable(curr.Builder.calls)
	}
	return reachable
}

// checkRecursion rejects any cycle in the call graph. Every function has a
// single static frame, so a function cannot be active twice.
func (u *unit) checkRecursion() error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[*Function]int)

	var visit func(fn *Function) error
	visit = func(fn *Function) error {
		state[fn] = active
		for _, e := range fn.Builder.calls {
			switch state[e.callee] {
			case active:
				return sourceErrorf(e.rng, "recursive call to %s is not supported", e.callee.QualifiedName())
			case unvisited:
				if err := visit(e.callee); err != nil {
					return err
				}
			}
		}
		state[fn] = done
		return nil
	}

	for _, fn := range u.funcs.all {
		if !fn.Inline && state[fn] == unvisited {
			if err := visit(fn); err != nil {
				return err
			}
		}
	}
	return nil
}
