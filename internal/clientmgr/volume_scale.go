package clientmgr

import (
	"context"
	"math"

	"github.com/snapdog/snapdog/internal/models"
)

// ScaleZoneVolume realizes a zone volume change by proportionally scaling
// every client currently assigned to zoneIndex, preserving relative balance.
// An empty zone is a no-op success.
func (m *Manager) ScaleZoneVolume(ctx context.Context, zoneIndex, targetVolume int) error {
	all := m.store.GetAll()
	type entry struct {
		index  int
		volume int
	}
	var clients []entry
	for i, st := range all {
		if st.ZoneIndex == zoneIndex {
			clients = append(clients, entry{index: i, volume: st.Volume})
		}
	}
	if len(clients) == 0 {
		return nil
	}

	targetVolume = models.ClampVolume(targetVolume)

	sum := 0
	for _, c := range clients {
		sum += c.volume
	}
	vg := float64(sum) / float64(len(clients))
	delta := float64(targetVolume) - vg

	newVolumes := make(map[int]int, len(clients))
	for _, c := range clients {
		clientIndex := c.index
		vc := float64(c.volume)

		var vcPrime float64
		switch {
		case vg == 0 && delta > 0:
			vcPrime = float64(targetVolume)
		case vg == 100 && delta < 0:
			vcPrime = float64(targetVolume)
		case delta < 0:
			vcPrime = vc - (math.Abs(delta)/vg)*vc
		case delta > 0:
			vcPrime = vc + (delta/(100-vg))*(100-vc)
		default:
			vcPrime = vc
		}

		newVolumes[clientIndex] = models.ClampVolume(int(math.Round(vcPrime)))
	}

	for clientIndex, v := range newVolumes {
		if err := m.SetClientVolume(ctx, clientIndex, v); err != nil {
			return err
		}
	}
	return nil
}
