package walker

import "context"

// Node is one element of a repository structure tree.
type Node struct {
	Name     string
	Path     string
	Type     EntryType
	Children []*Node
	// Err is set when the directory at Path could not be listed.
	Err error
}

// Tree lists the whole structure of src. Listing failures are recorded on
// the failing node and never stop the rest of the tree from loading.
func Tree(ctx context.Context, name string, src Source) (*Node, error) {
	root := &Node{Name: name, Type: EntryDir}
	stack := []*Node{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return root, err
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := src.ListDir(ctx, n.Path)
		if err != nil {
			n.Err = err
			continue
		}
		n.Children = make([]*Node, 0, len(entries))
		for _, e := range entries {
			child := &Node{Name: e.Name, Path: e.Path, Type: e.Type}
			n.Children = append(n.Children, child)
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if n.Children[i].Type == EntryDir {
				stack = append(stack, n.Children[i])
			}
		}
	}
	return root, nil
}
