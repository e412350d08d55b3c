// Package tree builds the conversation forest over reconstructed pairs,
// linking user and assistant nodes by their uuid/parentUuid identities.
// Links are string identities into an arena map, never embedded object
// references, so a node whose parent was never materialized degrades to a
// root instead of an error.
package tree

import (
	"sort"
	"time"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

// Node kinds.
const (
	NodeUser      = "user"
	NodeAssistant = "assistant"
)

// Node is one endpoint of a reconstructed pair. Pair is a non-owning
// back-reference into the session's pair list.
type Node struct {
	UUID        string
	ParentUUID  string
	Type        string
	Content     string
	Timestamp   time.Time
	IsMeta      bool
	IsSidechain bool
	Pair        *reconstruct.ConversationPair
}

// Tree is the forest over all pair endpoints: an arena of nodes, an
// adjacency map, and the root set. Children and roots are ordered by
// timestamp for deterministic iteration.
type Tree struct {
	Nodes    map[string]*Node
	Children map[string][]string
	Roots    []string
}

// Build materializes every user and assistant identity in the pairs, then
// links each node under its parent when that identity is known. Unknown
// parents make roots; broken links never error.
func Build(pairs []reconstruct.ConversationPair) *Tree {
	t := &Tree{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
	}

	for i := range pairs {
		p := &pairs[i]
		if p.UserUUID != "" {
			t.addNode(&Node{
				UUID:        p.UserUUID,
				ParentUUID:  p.UserParentUUID,
				Type:        NodeUser,
				Content:     p.UserContent,
				Timestamp:   p.UserTime,
				IsMeta:      p.IsMeta,
				IsSidechain: p.IsSidechain,
				Pair:        p,
			})
		}
		if p.AssistantUUID != "" {
			t.addNode(&Node{
				UUID:        p.AssistantUUID,
				ParentUUID:  p.AssistantParentUUID,
				Type:        NodeAssistant,
				Content:     p.AssistantContent,
				Timestamp:   p.AssistantTime,
				IsMeta:      p.IsMeta,
				IsSidechain: p.IsSidechain,
				Pair:        p,
			})
		}
	}

	// Link in pair order for determinism; map iteration would shuffle the
	// pre-sort ordering of ties.
	for i := range pairs {
		p := &pairs[i]
		t.link(p.UserUUID)
		t.link(p.AssistantUUID)
	}

	t.sortIDs(t.Roots)
	for _, ids := range t.Children {
		t.sortIDs(ids)
	}
	return t
}

func (t *Tree) addNode(n *Node) {
	if _, exists := t.Nodes[n.UUID]; exists {
		return
	}
	t.Nodes[n.UUID] = n
}

func (t *Tree) link(uuid string) {
	n, ok := t.Nodes[uuid]
	if !ok {
		return
	}
	if n.ParentUUID != "" {
		if _, known := t.Nodes[n.ParentUUID]; known {
			t.Children[n.ParentUUID] = append(t.Children[n.ParentUUID], uuid)
			return
		}
	}
	t.Roots = append(t.Roots, uuid)
}

func (t *Tree) sortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.Nodes[ids[i]], t.Nodes[ids[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.UUID < b.UUID
	})
}

// Node looks up a node by identity.
func (t *Tree) Node(uuid string) *Node {
	return t.Nodes[uuid]
}

// PathToNode walks parent links upward from target to its root and returns
// the inclusive path root-first. Unknown targets return nil. The visited
// guard keeps malformed self-referential links from looping.
func (t *Tree) PathToNode(uuid string) []*Node {
	n, ok := t.Nodes[uuid]
	if !ok {
		return nil
	}

	var path []*Node
	visited := make(map[string]bool)
	for n != nil && !visited[n.UUID] {
		visited[n.UUID] = true
		path = append(path, n)
		n = t.Nodes[n.ParentUUID]
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Descendants breadth-first collects everything below a node and returns
// it sorted by timestamp.
func (t *Tree) Descendants(uuid string) []*Node {
	if _, ok := t.Nodes[uuid]; !ok {
		return nil
	}

	var out []*Node
	visited := map[string]bool{uuid: true}
	queue := append([]string(nil), t.Children[uuid]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		if n, ok := t.Nodes[id]; ok {
			out = append(out, n)
		}
		queue = append(queue, t.Children[id]...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}
