package combat

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pixil98/go-skirmish/internal/hexmap"
)

const (
	missChance     = 0.05
	critChance     = 0.15
	critMultiplier = 2.0
)

// Roller supplies the uniform random draws for combat resolution. *rand.Rand
// satisfies it; tests supply a scripted sequence.
type Roller interface {
	Float64() float64
}

// Resolver computes attack outcomes from entity positions on a map. It owns
// its random source, so a match can run with a fixed seed and replay
// identically.
type Resolver struct {
	world *hexmap.Map
	roll  Roller
}

// NewResolver creates a Resolver reading positions from the given map. A nil
// roller falls back to a time-seeded source.
func NewResolver(world *hexmap.Map, roll Roller) *Resolver {
	if roll == nil {
		roll = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Resolver{
		world: world,
		roll:  roll,
	}
}

// ResolveAttack resolves one attack. The check order is fixed: position,
// range, miss roll, defense lookup, crit roll, damage. Reordering the rolls
// changes the probability distribution.
func (r *Resolver) ResolveAttack(attackerId, targetId string, at AttackType, baseDamage int) Result {
	attTile := r.world.EntityTile(attackerId)
	tgtTile := r.world.EntityTile(targetId)
	if attTile == nil || tgtTile == nil {
		return NewInvalid("no valid position")
	}

	maxRange := at.MaxRange()
	if maxRange == 0 {
		return NewInvalid(fmt.Sprintf("unknown attack type %q", at))
	}

	dist := hexmap.Distance(attTile, tgtTile)
	if dist > maxRange {
		return NewInvalid(fmt.Sprintf("out of range: %d/%d", dist, maxRange))
	}

	if r.roll.Float64() < missChance {
		return NewMiss(attackerId, targetId, at)
	}

	defense := tgtTile.Defense()
	critical := r.roll.Float64() < critChance

	damage := float64(baseDamage)
	if critical {
		damage *= critMultiplier
	}
	damage -= float64(defense)
	damage = math.Max(1, damage)

	return NewHit(attackerId, targetId, at, int(math.Round(damage)), critical, defense)
}
