package systems

import (
	"math"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

// BiteSize returns how much biomass an animal of genome g takes per bite.
func BiteSize(g components.Genome, cfg config.PlantConfig) float64 {
	return cfg.BiteSize * g.Size
}

// Graze removes up to want biomass and returns the amount taken. A plant
// stripped to zero starts its regrow timer.
func Graze(p *components.PlantMatter, want float64, cfg config.PlantConfig) float64 {
	if p.Depleted() || want <= 0 {
		return 0
	}
	took := math.Min(want, p.Biomass)
	p.Biomass -= took
	if p.Biomass <= 0 {
		p.Biomass = 0
		p.RegrowTimer = cfg.RegrowTicks
	}
	return took
}

// Regrow advances a plant by one tick. Depleted plants refill completely
// when the timer runs out; partially grazed plants grow continuously.
func Regrow(p *components.PlantMatter, cfg config.PlantConfig) {
	if p.Depleted() {
		if p.RegrowTimer > 0 {
			p.RegrowTimer--
		}
		if p.RegrowTimer <= 0 {
			p.Biomass = p.Max
		}
		return
	}
	if p.Biomass < p.Max {
		p.Biomass = math.Min(p.Max, p.Biomass+cfg.RegrowRate)
	}
}
