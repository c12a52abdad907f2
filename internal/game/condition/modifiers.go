package condition

// Edge is one contribution to an attack roll's advantage state.
type Edge int

const (
	NoEdge Edge = iota
	Advantage
	Disadvantage
)

func parseEdge(s string) Edge {
	switch s {
	case "advantage":
		return Advantage
	case "disadvantage":
		return Disadvantage
	}
	return NoEdge
}

// AttackerEdges returns the edges the attacker's own conditions impose.
func (r *Registry) AttackerEdges(s Set) []Edge {
	var out []Edge
	for _, id := range s.ids {
		if d, ok := r.defs[id]; ok && d.AttackerDisadvantage {
			out = append(out, Disadvantage)
		}
	}
	return out
}

// DefenderEdges returns the edges the target's conditions grant to an incoming
// attack, which differ for melee and ranged attacks.
func (r *Registry) DefenderEdges(s Set, ranged bool) []Edge {
	var out []Edge
	for _, id := range s.ids {
		d, ok := r.defs[id]
		if !ok {
			continue
		}
		rule := d.MeleeAttackers
		if ranged {
			rule = d.RangedAttackers
		}
		if e := parseEdge(rule); e != NoEdge {
			out = append(out, e)
		}
	}
	return out
}

// Crawling reports whether any active condition makes movement a crawl.
func (r *Registry) Crawling(s Set) bool {
	for _, id := range s.ids {
		if d, ok := r.defs[id]; ok && d.Crawling {
			return true
		}
	}
	return false
}
