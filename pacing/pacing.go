// Package pacing implements the smart-pacing timing balancer: it converts
// raw clip lengths and content weights into per-clip assigned durations and
// start offsets meeting a target total runtime. Balance is a pure function
// and deterministic for identical inputs; all accumulation happens in clip
// order.
package pacing

import (
	"math"

	"reelforge/config"
	"reelforge/types"
)

// Mode selects the pacing feel.
type Mode string

const (
	ModeStandard  Mode = "standard"
	ModePunchy    Mode = "punchy"
	ModeCinematic Mode = "cinematic"
)

// ParseMode maps a user string onto a Mode, defaulting to standard.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModePunchy, ModeCinematic:
		return Mode(s)
	default:
		return ModeStandard
	}
}

// Clip is one balancer input: a source clip's raw length and its content
// weight. Weights are supplied by the caller (caption length, explicit
// emphasis); the balancer only requires them to be non-negative.
type Clip struct {
	File   string
	Raw    float64
	Weight float64
}

// modeParams shapes the allocation per mode. Floor is the preferred minimum
// slot. Spread is an exponent applied to weights: below 1 it compresses
// the spread toward uniform cuts, above 1 it stretches high-weight clips.
type modeParams struct {
	Floor  float64
	Spread float64
}

func paramsFor(mode Mode) modeParams {
	switch mode {
	case ModePunchy:
		return modeParams{Floor: config.MinClipSeconds, Spread: 0.6}
	case ModeCinematic:
		return modeParams{Floor: 4.0, Spread: 1.4}
	default:
		return modeParams{Floor: 3.0, Spread: 1.0}
	}
}

// Balance produces a timing plan for the given clips, target total duration
// and mode. Guarantees:
//
//   - 0 < duration <= raw for every planned clip; clips shorter than the
//     rounding grid (under 0.01s of raw footage) are omitted from the plan
//   - the achieved total is within tolerance of the target whenever the
//     summed raw durations reach the target and per-clip floors permit it
//   - when the raw footage cannot fill the target, the achieved total equals
//     the summed raw durations and the shortfall is reported
//   - offsets lay clips back to back with no gaps
func Balance(clips []Clip, target float64, mode Mode) *types.TimingPlan {
	plan := &types.TimingPlan{Target: target, Entries: []types.TimingEntry{}}
	n := len(clips)
	if n == 0 {
		return plan
	}

	// Work on a copy, dropping clips too short to hold even one cent of
	// time. A degenerate target falls back to equal weighting.
	kept := make([]Clip, 0, n)
	for _, c := range clips {
		if c.Raw >= 0.01 {
			kept = append(kept, c)
		}
	}
	clips = kept
	n = len(clips)
	if n == 0 {
		return plan
	}
	if target <= 0 {
		for i := range clips {
			clips[i].Weight = 1
		}
	}

	raws := make([]float64, n)
	var sumRaw float64
	for i, c := range clips {
		raws[i] = c.Raw
		sumRaw += raws[i]
	}

	// Effective budget: never invent footage. A non-positive target falls
	// back to using everything the source clips have.
	effective := target
	if effective <= 0 || effective > sumRaw {
		effective = sumRaw
	}

	p := paramsFor(mode)
	weights := shapedWeights(clips, p.Spread)

	// Preferred per-clip minimums, bounded by each clip's real length.
	floors := make([]float64, n)
	var sumFloors float64
	for i := range clips {
		floors[i] = math.Min(p.Floor, raws[i])
		sumFloors += floors[i]
	}

	var durs []float64
	if sumFloors >= effective {
		// Floors alone exceed the budget: the target is infeasible without
		// cutting below the minimum slot. Degrade gracefully to the floors.
		durs = append([]float64(nil), floors...)
	} else {
		durs = allocate(effective, weights, floors, raws)
	}

	// Round and lay out back to back. Rounding carries its residue into
	// the next clip so per-clip errors cancel instead of drifting the
	// total away from the target as the clip count grows.
	var offset, carry float64
	plan.Entries = make([]types.TimingEntry, n)
	for i, c := range clips {
		d := math.Round((durs[i]+carry)*100) / 100
		carry += durs[i] - d
		if d > raws[i] {
			ceil := math.Floor(raws[i]*100) / 100
			carry += d - ceil
			d = ceil
		}
		if d <= 0 {
			d = 0.01
			carry -= 0.01
		}
		plan.Entries[i] = types.TimingEntry{File: c.File, Duration: d, Offset: math.Round(offset*100) / 100}
		offset += d
	}
	plan.Achieved = math.Round(offset*100) / 100
	if target > 0 && plan.Achieved < target-config.TimingTolerance {
		plan.Shortfall = math.Round((target-plan.Achieved)*100) / 100
	}
	return plan
}

// shapedWeights applies the mode's spread exponent, falling back to equal
// weights when every input weight is zero or negative.
func shapedWeights(clips []Clip, spread float64) []float64 {
	out := make([]float64, len(clips))
	var positive bool
	for _, c := range clips {
		if c.Weight > 0 {
			positive = true
			break
		}
	}
	for i, c := range clips {
		w := c.Weight
		if !positive {
			w = 1
		}
		if w <= 0 {
			// A zero-weight clip among weighted ones still gets a sliver so
			// its floor can hold.
			w = 1e-6
		}
		out[i] = math.Pow(w, spread)
	}
	return out
}

// allocate distributes budget across clips proportionally to weight,
// clamping each clip to its raw-length ceiling and redistributing the
// excess among the remaining unclamped clips. The fixed-point loop is
// bounded by n passes: every pass either clamps at least one new clip or
// terminates. A final pass raises clips under their floor, paying for the
// raise from clips with slack above their own floor.
func allocate(budget float64, weights, floors, ceils []float64) []float64 {
	n := len(weights)
	durs := make([]float64, n)
	clamped := make([]bool, n)

	remaining := budget
	freeWeight := 0.0
	for i := 0; i < n; i++ {
		freeWeight += weights[i]
	}

	// n clamping passes at most, plus one final recompute for the clips
	// left unclamped by the last clamping pass.
	for pass := 0; pass <= n; pass++ {
		if freeWeight <= 0 {
			break
		}
		perWeight := remaining / freeWeight
		newlyClamped := false
		for i := 0; i < n; i++ {
			if clamped[i] {
				continue
			}
			durs[i] = weights[i] * perWeight
			if durs[i] >= ceils[i] {
				durs[i] = ceils[i]
				clamped[i] = true
				newlyClamped = true
				remaining -= ceils[i]
				freeWeight -= weights[i]
			}
		}
		if !newlyClamped {
			break
		}
	}

	raiseFloors(durs, floors, ceils, clamped)
	return durs
}

// raiseFloors lifts clips below their floor and removes the same amount
// from clips with slack, proportionally to that slack, keeping the total
// unchanged. Ceiling-clamped clips already sit at their maximum and are
// left alone as deficit donors only.
func raiseFloors(durs, floors, ceils []float64, clamped []bool) {
	var deficit float64
	for i := range durs {
		if durs[i] < floors[i] {
			deficit += floors[i] - durs[i]
			durs[i] = floors[i]
		}
	}
	if deficit <= 0 {
		return
	}
	// Slack above floor on clips that can give.
	var slack float64
	for i := range durs {
		if durs[i] > floors[i] {
			slack += durs[i] - floors[i]
		}
	}
	if slack <= 0 {
		// Everyone sits at their floor; the total overshoots the budget and
		// the caller reports the achieved value.
		return
	}
	take := math.Min(deficit, slack)
	for i := range durs {
		if durs[i] > floors[i] {
			share := (durs[i] - floors[i]) / slack
			durs[i] -= take * share
		}
	}
}

// FromStoryboard derives balancer inputs from a storyboard, weighting each
// clip by caption length unless an explicit emphasis override is set.
func FromStoryboard(sb *types.Storyboard) []Clip {
	clips := make([]Clip, 0, len(sb.Clips))
	for _, c := range sb.Clips {
		w := c.Emphasis
		if w <= 0 {
			w = float64(len(c.Text))
		}
		if w <= 0 {
			w = 1
		}
		clips = append(clips, Clip{File: c.File, Raw: c.RawDuration, Weight: w})
	}
	return clips
}
