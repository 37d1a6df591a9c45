// dependency.go - dependency queries over the Expr DAG
//
// Dieses Modul beantwortet Abhaengigkeitsfragen zwischen zwei Vals eines
// Fusion-Graphen: ob ein gerichteter Pfad existiert (IsDependencyOf) und,
// falls ja, ein konkreter Pfad (GetSingleDependencyChain).
package ir

// IsDependencyOf reports whether some directed path of Exprs leads from a
// to b (a produces, directly or transitively, a value consumed in
// computing b).
func IsDependencyOf(a, b *Val) bool {
	if a == b {
		return false
	}
	visited := make(map[*Val]bool)
	var walk func(v *Val) bool
	walk = func(v *Val) bool {
		if v == a {
			return true
		}
		if visited[v] || v.def == nil {
			return false
		}
		visited[v] = true
		for _, in := range v.def.Inputs {
			if walk(in) {
				return true
			}
		}
		return false
	}
	return walk(b)
}

// GetSingleDependencyChain returns one Expr-by-Expr chain of Vals from a to
// b (inclusive), ordered a-to-b, or nil if b does not depend on a.
func GetSingleDependencyChain(a, b *Val) []*Val {
	visited := make(map[*Val]bool)
	var path []*Val
	var walk func(v *Val) bool
	walk = func(v *Val) bool {
		path = append(path, v)
		if v == a {
			return true
		}
		if visited[v] || v.def == nil {
			path = path[:len(path)-1]
			return false
		}
		visited[v] = true
		for _, in := range v.def.Inputs {
			if walk(in) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if !walk(b) {
		return nil
	}
	// path is currently b..a; reverse to a..b.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
