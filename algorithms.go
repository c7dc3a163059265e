package main

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// routing is one DX7 algorithm. Operators are numbered 1..6 as printed on
// the front panel.
type routing struct {
	carriers []int
	edges    [][2]int // modulator, target
	feedback [2]int   // source, target
}

func chain(ops ...int) [][2]int {
	var edges [][2]int
	for i := 0; i+1 < len(ops); i++ {
		edges = append(edges, [2]int{ops[i], ops[i+1]})
	}
	return edges
}

func join(groups ...[][2]int) [][2]int {
	var edges [][2]int
	for _, g := range groups {
		edges = append(edges, g...)
	}
	return edges
}

func self(op int) [2]int { return [2]int{op, op} }

var routingTable = [32]routing{
	{[]int{1, 3}, join(chain(2, 1), chain(6, 5, 4, 3)), self(6)},
	{[]int{1, 3}, join(chain(2, 1), chain(6, 5, 4, 3)), self(2)},
	{[]int{1, 4}, join(chain(3, 2, 1), chain(6, 5, 4)), self(6)},
	{[]int{1, 4}, join(chain(3, 2, 1), chain(6, 5, 4)), [2]int{4, 6}},
	{[]int{1, 3, 5}, join(chain(2, 1), chain(4, 3), chain(6, 5)), self(6)},
	{[]int{1, 3, 5}, join(chain(2, 1), chain(4, 3), chain(6, 5)), [2]int{5, 6}},
	{[]int{1, 3}, join(chain(2, 1), chain(4, 3), chain(6, 5, 3)), self(6)},
	{[]int{1, 3}, join(chain(2, 1), chain(4, 3), chain(6, 5, 3)), self(4)},
	{[]int{1, 3}, join(chain(2, 1), chain(4, 3), chain(6, 5, 3)), self(2)},
	{[]int{1, 4}, join(chain(3, 2, 1), chain(5, 4), chain(6, 4)), self(3)},
	{[]int{1, 4}, join(chain(3, 2, 1), chain(5, 4), chain(6, 4)), self(6)},
	{[]int{1, 3}, join(chain(2, 1), chain(4, 3), chain(5, 3), chain(6, 3)), self(2)},
	{[]int{1, 3}, join(chain(2, 1), chain(4, 3), chain(5, 3), chain(6, 3)), self(6)},
	{[]int{1, 3}, join(chain(2, 1), chain(5, 4, 3), chain(6, 4)), self(6)},
	{[]int{1, 3}, join(chain(2, 1), chain(5, 4, 3), chain(6, 4)), self(2)},
	{[]int{1}, join(chain(2, 1), chain(4, 3, 1), chain(6, 5, 1)), self(6)},
	{[]int{1}, join(chain(2, 1), chain(4, 3, 1), chain(6, 5, 1)), self(2)},
	{[]int{1}, join(chain(2, 1), chain(3, 1), chain(6, 5, 4, 1)), self(3)},
	{[]int{1, 4, 5}, join(chain(3, 2, 1), chain(6, 4), chain(6, 5)), self(6)},
	{[]int{1, 2, 4}, join(chain(3, 1), chain(3, 2), chain(5, 4), chain(6, 4)), self(3)},
	{[]int{1, 2, 4, 5}, join(chain(3, 1), chain(3, 2), chain(6, 4), chain(6, 5)), self(3)},
	{[]int{1, 3, 4, 5}, join(chain(2, 1), chain(6, 3), chain(6, 4), chain(6, 5)), self(6)},
	{[]int{1, 2, 4, 5}, join(chain(3, 2), chain(6, 4), chain(6, 5)), self(6)},
	{[]int{1, 2, 3, 4, 5}, join(chain(6, 3), chain(6, 4), chain(6, 5)), self(6)},
	{[]int{1, 2, 3, 4, 5}, join(chain(6, 4), chain(6, 5)), self(6)},
	{[]int{1, 2, 4}, join(chain(3, 2), chain(5, 4), chain(6, 4)), self(6)},
	{[]int{1, 2, 4}, join(chain(3, 2), chain(5, 4), chain(6, 4)), self(3)},
	{[]int{1, 3, 6}, join(chain(2, 1), chain(5, 4, 3)), self(5)},
	{[]int{1, 2, 3, 5}, join(chain(4, 3), chain(6, 5)), self(6)},
	{[]int{1, 2, 3, 6}, join(chain(5, 4, 3)), self(5)},
	{[]int{1, 2, 3, 4, 5}, join(chain(6, 5)), self(6)},
	{[]int{1, 2, 3, 4, 5, 6}, nil, self(6)},
}

// Algorithm is a routing graph compiled for the engine. Indexes are 0-based
// operator slots (0 = OP1).
type Algorithm struct {
	ID          int
	Carriers    []int
	Modulators  [6][]int // per target, the operators feeding its phase
	Order       [6]int   // every modulator precedes its targets
	FeedbackSrc int
	FeedbackDst int
}

// IsCarrier reports whether op (0-based) is summed into the output.
func (a *Algorithm) IsCarrier(op int) bool {
	for _, c := range a.Carriers {
		if c == op {
			return true
		}
	}
	return false
}

var algorithms [32]Algorithm

func init() {
	for i, r := range routingTable {
		alg, err := compileAlgorithm(i+1, r)
		if err != nil {
			panic(err)
		}
		algorithms[i] = alg
	}
}

// AlgorithmByID returns the compiled routing for algorithm 1..32.
func AlgorithmByID(id int) (*Algorithm, error) {
	if id < 1 || id > len(algorithms) {
		return nil, errors.Wrapf(ErrRange, "algorithm %d not in 1..%d", id, len(algorithms))
	}
	return &algorithms[id-1], nil
}

func compileAlgorithm(id int, r routing) (Algorithm, error) {
	alg := Algorithm{ID: id}
	valid := func(op int) bool { return op >= 1 && op <= 6 }

	if len(r.carriers) == 0 {
		return alg, fmt.Errorf("algorithm %d has no carrier", id)
	}
	for _, c := range r.carriers {
		if !valid(c) {
			return alg, fmt.Errorf("algorithm %d: carrier %d out of range", id, c)
		}
		alg.Carriers = append(alg.Carriers, c-1)
	}
	sort.Ints(alg.Carriers)

	var indegree [6]int
	var targets [6][]int
	for _, e := range r.edges {
		m, t := e[0], e[1]
		if !valid(m) || !valid(t) || m == t {
			return alg, fmt.Errorf("algorithm %d: bad edge %d->%d", id, m, t)
		}
		alg.Modulators[t-1] = append(alg.Modulators[t-1], m-1)
		targets[m-1] = append(targets[m-1], t-1)
		indegree[t-1]++
	}

	if !valid(r.feedback[0]) || !valid(r.feedback[1]) {
		return alg, fmt.Errorf("algorithm %d: bad feedback %v", id, r.feedback)
	}
	alg.FeedbackSrc = r.feedback[0] - 1
	alg.FeedbackDst = r.feedback[1] - 1

	// Kahn's algorithm; among ready operators the highest slot goes first so
	// the order reads OP6 -> OP1 like the panel diagrams.
	n := 0
	var done [6]bool
	for n < 6 {
		next := -1
		for op := 5; op >= 0; op-- {
			if !done[op] && indegree[op] == 0 {
				next = op
				break
			}
		}
		if next < 0 {
			return alg, fmt.Errorf("algorithm %d: modulation graph has a cycle", id)
		}
		done[next] = true
		alg.Order[n] = next
		n++
		for _, t := range targets[next] {
			indegree[t]--
		}
	}
	return alg, nil
}
