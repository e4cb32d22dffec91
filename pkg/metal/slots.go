package metal

import "github.com/aretw0/zpt/pkg/domain"

// Fills collects the fill-slot nodes under useSite, keyed by slot name; the
// first one in document order wins. The search does not enter a nested
// use-macro or extend-macro element, whose fills belong to that invocation.
func Fills(useSite *domain.Node) map[string]*domain.Node {
	fills := make(map[string]*domain.Node)
	for _, c := range useSite.Children {
		c.Walk(func(n *domain.Node) bool {
			if isFill(n) {
				name, _ := n.Attr(domain.NamespaceMETAL, domain.MetalFillSlot)
				if _, ok := fills[name]; !ok {
					fills[name] = n
				}
			}
			return !isInvocation(n)
		})
	}
	return fills
}

// Slots lists the define-slot nodes under macro, excluding macro itself.
func Slots(macro *domain.Node) []domain.Slot {
	var slots []domain.Slot
	for _, n := range macro.Descendants(isDefine) {
		name, _ := n.Attr(domain.NamespaceMETAL, domain.MetalDefineSlot)
		slots = append(slots, domain.Slot{Name: name, Node: n})
	}
	return slots
}

// FillSlots replaces each define-slot under macro with a clone of the matching
// fill-slot from useSite. The clone is marked as a definition of the same slot
// unless it defines its own, so a later use-site can fill it again.
// Slots without a fill keep their default content; fills without a slot are ignored.
// It returns the names of the slots that were filled.
func FillSlots(macro, useSite *domain.Node) []string {
	fills := Fills(useSite)
	if len(fills) == 0 {
		return nil
	}
	var filled []string
	for _, slot := range Slots(macro) {
		if !attachedUnder(slot.Node, macro) {
			continue
		}
		filler, ok := fills[slot.Name]
		if !ok {
			continue
		}
		replacement := filler.Clone()
		if !replacement.HasAttr(domain.NamespaceMETAL, domain.MetalDefineSlot) {
			replacement.SetAttr(domain.Attr{
				Namespace: domain.NamespaceMETAL,
				Prefix:    metalPrefix(slot.Node),
				Name:      domain.MetalDefineSlot,
				Value:     slot.Name,
			})
		}
		replacement.Source = filler.Source
		slot.Node.ReplaceWith(replacement)
		filled = append(filled, slot.Name)
	}
	return filled
}

// attachedUnder reports whether n is still inside root after earlier replacements.
func attachedUnder(n, root *domain.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

func metalPrefix(n *domain.Node) string {
	for _, a := range n.Attrs {
		if a.Namespace == domain.NamespaceMETAL {
			return a.Prefix
		}
	}
	return domain.PrefixMETAL
}

func isFill(n *domain.Node) bool {
	return n.Type == domain.ElementNode && n.HasAttr(domain.NamespaceMETAL, domain.MetalFillSlot)
}

func isDefine(n *domain.Node) bool {
	return n.Type == domain.ElementNode && n.HasAttr(domain.NamespaceMETAL, domain.MetalDefineSlot)
}

func isInvocation(n *domain.Node) bool {
	return n.Type == domain.ElementNode &&
		(n.HasAttr(domain.NamespaceMETAL, domain.MetalUseMacro) || n.HasAttr(domain.NamespaceMETAL, domain.MetalExtendMacro))
}
