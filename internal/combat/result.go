package combat

// AttackType selects the range band for an attack.
type AttackType string

const (
	AttackMelee  AttackType = "melee"
	AttackRanged AttackType = "ranged"
)

// MaxRange returns the maximum hex distance for the attack type, or 0 for an
// unknown type.
func (a AttackType) MaxRange() int {
	switch a {
	case AttackMelee:
		return 1
	case AttackRanged:
		return 3
	default:
		return 0
	}
}

// Result is the outcome of a resolved attack. It is a closed set: Invalid,
// Miss, or Hit, built only through the New* constructors. Values are never
// mutated after construction.
type Result interface {
	isResult()
}

// Invalid means the attack could not be attempted (no position, out of
// range).
type Invalid struct {
	Reason string
}

// Miss means the attack was legal but the miss roll failed it.
type Miss struct {
	AttackerId string
	TargetId   string
	AttackType AttackType
}

// Hit carries the resolved damage. Damage is only meaningful here; the other
// variants deliberately have no damage field.
type Hit struct {
	AttackerId   string
	TargetId     string
	AttackType   AttackType
	Damage       int
	Critical     bool
	DefenseBonus int
}

func (Invalid) isResult() {}
func (Miss) isResult()    {}
func (Hit) isResult()     {}

// NewInvalid builds an Invalid result.
func NewInvalid(reason string) Result {
	return Invalid{Reason: reason}
}

// NewMiss builds a Miss result.
func NewMiss(attackerId, targetId string, at AttackType) Result {
	return Miss{AttackerId: attackerId, TargetId: targetId, AttackType: at}
}

// NewHit builds a Hit result.
func NewHit(attackerId, targetId string, at AttackType, damage int, critical bool, defenseBonus int) Result {
	return Hit{
		AttackerId:   attackerId,
		TargetId:     targetId,
		AttackType:   at,
		Damage:       damage,
		Critical:     critical,
		DefenseBonus: defenseBonus,
	}
}
