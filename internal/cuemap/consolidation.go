package cuemap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	consolidationMinGroupSize = 5
	consolidationMinJaccard   = 0.8
	gistSummaryCharsPerItem   = 200
)

// Consolidate runs one sweep of §4.5: find cue-sets appearing on >= N=5
// records whose pairwise Jaccard similarity is >= 0.8, and create one
// additive gist record per such cluster. Originals are never mutated or
// removed. Returns the ids of any new gist records created.
func (e *Engine) Consolidate() []string {
	all := e.Store.All()
	records := make([]*Record, 0, len(all))
	for _, r := range all {
		if !e.isGist(r.ID) {
			records = append(records, r)
		}
	}
	if len(records) < consolidationMinGroupSize {
		return nil
	}

	groups := groupByJaccard(records, consolidationMinJaccard, consolidationMinGroupSize)

	var created []string
	for _, group := range groups {
		ids := make([]string, len(group))
		for i, r := range group {
			ids[i] = r.ID
		}
		sort.Strings(ids)
		key := strings.Join(ids, ",")

		e.gistMu.Lock()
		_, seen := e.gistsKeySeen[key]
		if !seen {
			e.gistsKeySeen[key] = struct{}{}
		}
		e.gistMu.Unlock()
		if seen {
			continue // idempotent: already consolidated this exact set
		}

		gistID := e.createGist(group)
		created = append(created, gistID)
	}
	return created
}

// groupByJaccard partitions records into maximal clusters sharing near-
// identical cue sets. It's a simple greedy clustering: for each unclustered
// record, gather every later unclustered record whose Jaccard similarity
// against it and against every record already gathered is >= minJaccard;
// keep the cluster if it reaches minSize.
func groupByJaccard(records []*Record, minJaccard float64, minSize int) [][]*Record {
	used := make(map[string]bool, len(records))
	var groups [][]*Record

	for i, r := range records {
		if used[r.ID] {
			continue
		}
		cluster := []*Record{r}
		clusterCues := []map[string]struct{}{r.CueSet()}
		for j := i + 1; j < len(records); j++ {
			o := records[j]
			if used[o.ID] {
				continue
			}
			oCues := o.CueSet()
			fits := true
			for _, mc := range clusterCues {
				if jaccard(mc, oCues) < minJaccard {
					fits = false
					break
				}
			}
			if fits {
				cluster = append(cluster, o)
				clusterCues = append(clusterCues, oCues)
			}
		}
		if len(cluster) >= minSize {
			for _, c := range cluster {
				used[c.ID] = true
			}
			groups = append(groups, cluster)
		}
	}
	return groups
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for c := range a {
		if _, ok := b[c]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// createGist builds the additive summary record for §4.5 step 2: content
// is the first 200 chars of each constituent joined, cues are the union of
// constituent cues plus gist:true and consolidated_from:<count>.
func (e *Engine) createGist(group []*Record) string {
	cueSet := make(map[string]struct{})
	parts := make([]string, 0, len(group))
	for _, r := range group {
		for _, c := range r.CueList() {
			cueSet[c] = struct{}{}
		}
		snippet := r.Content
		if len(snippet) > gistSummaryCharsPerItem {
			snippet = snippet[:gistSummaryCharsPerItem]
		}
		parts = append(parts, snippet)
	}
	cues := make([]string, 0, len(cueSet)+2)
	for c := range cueSet {
		cues = append(cues, c)
	}
	cues = append(cues, "gist:true", "consolidated_from:"+strconv.Itoa(len(group)))

	content := strings.Join(parts, " ")
	res, err := e.Remember(content, cues)
	if err != nil {
		return ""
	}

	e.gistMu.Lock()
	e.gists[res.Record.ID] = struct{}{}
	e.gistMu.Unlock()

	return res.Record.ID
}

// ConsolidationReport is a human-readable summary of one sweep.
type ConsolidationReport struct {
	GistsCreated []string
}

func (r ConsolidationReport) String() string {
	return fmt.Sprintf("consolidation: %d gist(s) created", len(r.GistsCreated))
}
