package hnsw

// node is a single vertex in the graph. Its numeric id doubles as the row
// id in the shared arena holding its vector, so node and vector storage
// never drift apart (spec §4.5.1).
type node struct {
	level int
	links [][]uint32 // links[l] holds the neighbor ids at layer l, l in [0, level]
}
