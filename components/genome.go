package components

// Genome holds the heritable traits of an animal.
type Genome struct {
	Size       float64
	Speed      float64
	Vision     float64
	Aggression float64
	Metabolism float64
}

// Traits returns the genome as an ordered slice: size, speed, vision,
// aggression, metabolism.
func (g Genome) Traits() [5]float64 {
	return [5]float64{g.Size, g.Speed, g.Vision, g.Aggression, g.Metabolism}
}

// GenomeFromTraits is the inverse of Traits.
func GenomeFromTraits(t [5]float64) Genome {
	return Genome{Size: t[0], Speed: t[1], Vision: t[2], Aggression: t[3], Metabolism: t[4]}
}

// TraitNames lists trait names in Traits order.
var TraitNames = [5]string{"size", "speed", "vision", "aggression", "metabolism"}
