package result

import "fmt"

// ValidateDocumentTree checks the invariant from spec.md §9: within a
// section stack that was not reset at a page break, heading levels must
// not invert (a level-3 heading cannot directly nest a level-2 one).
// Supplemented from original_source's document_tree transform, which
// builds this same stack-based structure from a flat sequence of
// hierarchy blocks.
func ValidateDocumentTree(doc *DocumentStructure) error {
	if doc == nil {
		return nil
	}
	for _, s := range doc.Sections {
		if err := validateSection(s, 0); err != nil {
			return err
		}
	}
	return nil
}

func validateSection(s *DocumentSection, parentLevel int) error {
	if s.Level <= parentLevel && parentLevel != 0 {
		return fmt.Errorf("document tree: heading level inversion: child level %d under parent level %d", s.Level, parentLevel)
	}
	for _, c := range s.Children {
		if err := validateSection(c, s.Level); err != nil {
			return err
		}
	}
	return nil
}

// BuildDocumentTree folds a flat, reading-order sequence of hierarchy
// blocks into a heading-driven DocumentStructure. Blocks with level
// "body" attach as text to the current innermost section; a page break
// resets the section stack (pageBreaks lists the block indices at which
// a new page starts).
func BuildDocumentTree(blocks []HierarchyBlock, pageBreaks map[int]bool) *DocumentStructure {
	doc := &DocumentStructure{}
	var stack []*DocumentSection

	resetStack := func() { stack = nil }

	levelOf := func(level string) int {
		switch level {
		case "h1":
			return 1
		case "h2":
			return 2
		case "h3":
			return 3
		case "h4":
			return 4
		case "h5":
			return 5
		case "h6":
			return 6
		default:
			return 0
		}
	}

	for i, b := range blocks {
		if pageBreaks[i] {
			resetStack()
		}
		lvl := levelOf(b.Level)
		if lvl == 0 {
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if top.Body != "" {
				top.Body += "\n"
			}
			top.Body += b.Text
			continue
		}

		sec := &DocumentSection{Heading: b.Text, Level: lvl}

		for len(stack) > 0 && stack[len(stack)-1].Level >= lvl {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			doc.Sections = append(doc.Sections, sec)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, sec)
		}
		stack = append(stack, sec)
	}

	return doc
}
