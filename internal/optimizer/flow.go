package optimizer

import (
	"context"
	"math"
)

// arc is one residual edge. rev indexes the paired edge in adj[to].
type arc struct {
	to   int
	rev  int
	cap  int
	cost int64
}

// network is a min-cost flow graph solved with successive shortest paths.
// Arc costs may be negative as long as the initial graph has no negative
// cycle, which holds for the layered graph built by the model.
type network struct {
	adj [][]arc
}

func newNetwork(nodes int) *network {
	return &network{adj: make([][]arc, nodes)}
}

// addArc adds from->to and returns its position in adj[from].
func (g *network) addArc(from, to, capacity int, cost int64) int {
	g.adj[from] = append(g.adj[from], arc{to: to, rev: len(g.adj[to]), cap: capacity, cost: cost})
	g.adj[to] = append(g.adj[to], arc{to: from, rev: len(g.adj[from]) - 1, cap: 0, cost: -cost})
	return len(g.adj[from]) - 1
}

// flowOn returns the units pushed through adj[from][idx].
func (g *network) flowOn(from, idx int) int {
	a := g.adj[from][idx]
	return g.adj[a.to][a.rev].cap
}

// minCostFlow pushes flow from s to t while the cheapest augmenting path has
// negative cost, which minimises total cost over every flow value.
func (g *network) minCostFlow(ctx context.Context, s, t int) (int, error) {
	n := len(g.adj)
	dist := make([]int64, n)
	inQueue := make([]bool, n)
	prevNode := make([]int, n)
	prevArc := make([]int, n)
	queue := make([]int, 0, n)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		for i := range dist {
			dist[i] = math.MaxInt64
			prevNode[i] = -1
		}
		dist[s] = 0
		queue = append(queue[:0], s)
		inQueue[s] = true
		for head := 0; head < len(queue); head++ {
			u := queue[head]
			inQueue[u] = false
			for i, a := range g.adj[u] {
				if a.cap == 0 {
					continue
				}
				if nd := dist[u] + a.cost; nd < dist[a.to] {
					dist[a.to] = nd
					prevNode[a.to] = u
					prevArc[a.to] = i
					if !inQueue[a.to] {
						inQueue[a.to] = true
						queue = append(queue, a.to)
					}
				}
			}
			// Compact the queue so it does not grow without bound.
			if head > n && head*2 > len(queue) {
				queue = append(queue[:0], queue[head+1:]...)
				head = -1
			}
		}

		if dist[t] == math.MaxInt64 || dist[t] >= 0 {
			return total, nil
		}

		push := math.MaxInt
		for v := t; v != s; v = prevNode[v] {
			if c := g.adj[prevNode[v]][prevArc[v]].cap; c < push {
				push = c
			}
		}
		for v := t; v != s; v = prevNode[v] {
			a := &g.adj[prevNode[v]][prevArc[v]]
			a.cap -= push
			g.adj[v][a.rev].cap += push
		}
		total += push
	}
}
