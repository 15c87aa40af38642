package summary

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/dyluth/trialrun/internal/datafile"
	"github.com/dyluth/trialrun/pkg/design"
)

// ConditionStats aggregates the trials of one condition.
type ConditionStats struct {
	Condition string  `json:"condition"`
	Trials    int     `json:"trials"`
	Responses int     `json:"responses"`          // Trials that were answered in time
	Correct   int     `json:"correct,omitempty"`  // DMTS only
	Accuracy  float64 `json:"accuracy,omitempty"` // Correct / Responses, DMTS only
	MeanRT    float64 `json:"mean_rt_ms"`
	SDRT      float64 `json:"sd_rt_ms"`
}

// IHTTEstimate is the crossed-uncrossed difference: the extra time a response takes
// when the stimulated hemisphere is not the one driving the responding hand.
type IHTTEstimate struct {
	CrossedMeanRT   float64 `json:"crossed_mean_rt_ms"`
	UncrossedMeanRT float64 `json:"uncrossed_mean_rt_ms"`
	EstimateMs      float64 `json:"estimate_ms"`
	LeftFieldMs     float64 `json:"left_field_ms"`  // LC - LI
	RightFieldMs    float64 `json:"right_field_ms"` // RC - RI
}

// Report is the summary of one data file.
type Report struct {
	Experiment  string           `json:"experiment"`
	Participant string           `json:"participant,omitempty"`
	Session     string           `json:"session,omitempty"`
	Trials      int              `json:"trials"`
	Conditions  []ConditionStats `json:"conditions"`
	IHTT        *IHTTEstimate    `json:"ihtt,omitempty"`
}

// Summarize builds a report from a data file table. The experiment is taken from the
// file's metadata, or inferred from its columns.
func Summarize(t *datafile.Table) (*Report, error) {
	experiment := t.Meta["experiment"]
	if experiment == "" {
		switch {
		case t.HasColumns("block_type", "rt"):
			experiment = "ihtt"
		case t.HasColumns("delay", "response", "latency"):
			experiment = "dmts"
		default:
			return nil, fmt.Errorf("cannot tell which experiment produced columns %v", t.Columns)
		}
	}

	report := &Report{
		Experiment:  experiment,
		Participant: t.Meta["participant"],
		Session:     t.Meta["session"],
		Trials:      len(t.Rows),
	}

	var err error
	switch experiment {
	case "ihtt":
		err = summarizeIHTT(t, report)
	case "dmts":
		err = summarizeDMTS(t, report)
	default:
		err = fmt.Errorf("unknown experiment: %s", experiment)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

type group struct {
	trials  int
	correct int
	rts     []float64
}

func (g *group) stats(name string, withAccuracy bool) ConditionStats {
	mean, sd := meanSD(g.rts)
	cs := ConditionStats{
		Condition: name,
		Trials:    g.trials,
		Responses: len(g.rts),
		MeanRT:    mean,
		SDRT:      sd,
	}
	if withAccuracy {
		cs.Correct = g.correct
		if len(g.rts) > 0 {
			cs.Accuracy = float64(g.correct) / float64(len(g.rts))
		}
	}
	return cs
}

func summarizeIHTT(t *datafile.Table, report *Report) error {
	typeCol, rtCol := t.Column("block_type"), t.Column("rt")
	if typeCol < 0 || rtCol < 0 {
		return fmt.Errorf("IHTT data needs block_type and rt columns")
	}

	groups := map[design.BlockType]*group{}
	for _, bt := range design.IHTTBlockTypes {
		groups[bt] = &group{}
	}

	var crossed, uncrossed []float64
	for i, row := range t.Rows {
		bt := design.BlockType(row[typeCol])
		if err := bt.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		g := groups[bt]
		g.trials++

		rt, ok, err := parseOptional(row[rtCol])
		if err != nil {
			return fmt.Errorf("row %d: invalid rt: %w", i+1, err)
		}
		if !ok {
			continue
		}
		g.rts = append(g.rts, rt)
		if bt.Crossed() {
			crossed = append(crossed, rt)
		} else {
			uncrossed = append(uncrossed, rt)
		}
	}

	for _, bt := range design.IHTTBlockTypes {
		report.Conditions = append(report.Conditions, groups[bt].stats(string(bt), false))
	}

	crossedMean, _ := meanSD(crossed)
	uncrossedMean, _ := meanSD(uncrossed)
	lc, _ := meanSD(groups[design.LeftContralateral].rts)
	li, _ := meanSD(groups[design.LeftIpsilateral].rts)
	rc, _ := meanSD(groups[design.RightContralateral].rts)
	ri, _ := meanSD(groups[design.RightIpsilateral].rts)

	report.IHTT = &IHTTEstimate{
		CrossedMeanRT:   crossedMean,
		UncrossedMeanRT: uncrossedMean,
		EstimateMs:      crossedMean - uncrossedMean,
		LeftFieldMs:     lc - li,
		RightFieldMs:    rc - ri,
	}
	return nil
}

func summarizeDMTS(t *datafile.Table, report *Report) error {
	delayCol, respCol, latCol := t.Column("delay"), t.Column("response"), t.Column("latency")
	if delayCol < 0 || respCol < 0 || latCol < 0 {
		return fmt.Errorf("DMTS data needs delay, response and latency columns")
	}

	groups := map[int]*group{}
	for i, row := range t.Rows {
		delay, err := strconv.Atoi(row[delayCol])
		if err != nil {
			return fmt.Errorf("row %d: invalid delay: %w", i+1, err)
		}
		g, ok := groups[delay]
		if !ok {
			g = &group{}
			groups[delay] = g
		}
		g.trials++

		lat, answered, err := parseOptional(row[latCol])
		if err != nil {
			return fmt.Errorf("row %d: invalid latency: %w", i+1, err)
		}
		if !answered {
			continue
		}
		g.rts = append(g.rts, lat)
		if row[respCol] == "1" {
			g.correct++
		}
	}

	delays := make([]int, 0, len(groups))
	for d := range groups {
		delays = append(delays, d)
	}
	sort.Ints(delays)

	for _, d := range delays {
		report.Conditions = append(report.Conditions, groups[d].stats(strconv.Itoa(d), true))
	}
	return nil
}

// parseOptional parses a numeric cell; an empty cell is a missing value.
func parseOptional(cell string) (float64, bool, error) {
	if cell == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// meanSD returns the mean and sample standard deviation; zero for too few values.
func meanSD(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}

	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}
