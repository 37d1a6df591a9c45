// domainkey.go - (TensorDomain, IterDomain) identity used as a map key
//
// Dieses Modul definiert DomainKey: ein Wertobjekt, das eine IterDomain
// zusammen mit der sie besitzenden TensorDomain identifiziert, sowie
// optional der konkreten Groesse, gegen die eine Broadcast-Achse
// konkretisiert wurde. Gegruendet auf original_source's DomainKey
// (root_domain_map.h): dort Schluessel fuer die unordered_map-basierten
// Aequivalenzklassen, hier Schluessel fuer die gods/v2-Strukturen unten.
package rootmap

import (
	"fmt"

	"github.com/csarofeen/fuser/domain"
)

// DomainKey names one root (or rfactor) axis of one TensorDomain.
type DomainKey struct {
	TD         *domain.TensorDomain
	ID         *domain.IterDomain
	ConcreteID *domain.IterDomain
}

func NewDomainKey(td *domain.TensorDomain, id *domain.IterDomain) DomainKey {
	return DomainKey{TD: td, ID: id}
}

// FromAxis builds a DomainKey from a bare IterDomain using its recorded
// owner TensorDomain (domain.IterDomain.Owner), for callers that only have
// the axis handle in scope.
func FromAxis(id *domain.IterDomain) DomainKey {
	return DomainKey{TD: id.Owner(), ID: id}
}

// Equal compares identity, not structural equality — two DomainKeys are the
// same key iff they name the same IterDomain Val within the same
// TensorDomain Val.
func (k DomainKey) Equal(other DomainKey) bool {
	return k.TD == other.TD && k.ID == other.ID
}

func (k DomainKey) String() string {
	return fmt.Sprintf("id%%%d(of td%%%d)", k.ID.Val.Name(), k.TD.Val.Name())
}
