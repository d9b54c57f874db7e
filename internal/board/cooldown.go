package board

import "time"

// DecayHeat runs one cooldown tick: every channel hotter than the resting
// floor loses one step of heat.
func (b *Board) DecayHeat() {
	floor := b.params.RestingHeat
	for i := range b.channels {
		if b.channels[i].heat > floor {
			b.channels[i].heat--
		}
	}
}

// CooldownPeriod returns the cooldown tick period that takes a channel from
// MaxHeat down to floor in exactly total. Decay is linear in the stored value.
func CooldownPeriod(total time.Duration, floor uint8) time.Duration {
	steps := MaxHeat - int(floor)
	if steps <= 0 {
		return total
	}
	return total / time.Duration(steps)
}
