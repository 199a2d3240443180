package domain

// Canonical group constants
const (
	GroupFood          = "food"
	GroupRetail        = "retail"
	GroupLife          = "life"
	GroupEntertainment = "entertainment"
	GroupMedical       = "medical"
	GroupLodging       = "lodging"
	GroupTourism       = "tourism"
	GroupResidence     = "residence"
	GroupGovernment    = "government"
	GroupEducation     = "education"
	GroupTransport     = "transport"
	GroupFinance       = "finance"
	GroupCompany       = "company"
	GroupAuto          = "auto"
	GroupPublic        = "public"
	GroupAddress       = "address"
	GroupOther         = "other"
)

// GroupAll — псевдогруппа, объединяющая все точки набора
const GroupAll = "all"

// CanonicalGroups возвращает группы встроенного набора правил в порядке приоритета
func CanonicalGroups() []string {
	return []string{
		GroupFood,
		GroupRetail,
		GroupLife,
		GroupEntertainment,
		GroupMedical,
		GroupLodging,
		GroupTourism,
		GroupResidence,
		GroupGovernment,
		GroupEducation,
		GroupTransport,
		GroupFinance,
		GroupCompany,
		GroupAuto,
		GroupPublic,
		GroupAddress,
		GroupOther,
	}
}

// IsReservedGroup сообщает, что группа служебная и её записи отбрасываются
// при загрузке (адреса и топонимы не являются анализируемыми объектами)
func IsReservedGroup(group string) bool {
	return group == GroupAddress
}
