package clustering

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/anujpatel512/bias-lens/types"
)

// DefaultSimilarityThreshold joins articles whose representations agree at
// least this much.
const DefaultSimilarityThreshold float32 = 0.80

// ErrIncompatibleRepresentations is returned when a clustering run receives
// representations built by different methods/versions.
var ErrIncompatibleRepresentations = errors.New("representations built by incompatible methods")

// Engine groups representations into narrative clusters with connected
// components over the similarity graph. It never uses a fixed k: the number
// of underlying stories is unknown a priori. Given identical inputs and
// threshold, two runs produce identical partitions and identical cluster
// identifiers.
type Engine struct {
	threshold float32
	now       func() time.Time
}

// NewEngine creates a cluster engine. threshold <= 0 selects the default.
func NewEngine(threshold float32) *Engine {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Engine{threshold: threshold, now: time.Now}
}

// Cluster partitions the representations. Every article lands in exactly one
// cluster; an article with no neighbor above threshold forms a singleton.
// Empty input yields an empty list. Fails only when representations mix
// methods; it operates on trusted in-process data otherwise.
func (e *Engine) Cluster(representations []*types.ArticleRepresentation) ([]*types.NarrativeCluster, error) {
	if len(representations) == 0 {
		return nil, nil
	}

	method := representations[0].Method
	for _, rep := range representations[1:] {
		if rep.Method != method {
			return nil, fmt.Errorf("%q vs %q: %w", method, rep.Method, ErrIncompatibleRepresentations)
		}
	}

	// Stable pair order: sort by article ID so identical inputs always walk
	// the similarity graph identically.
	reps := append([]*types.ArticleRepresentation(nil), representations...)
	sort.Slice(reps, func(i, j int) bool { return reps[i].ArticleID < reps[j].ArticleID })

	parent := make([]int, len(reps))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			// Attach the larger root index under the smaller so roots stay
			// the smallest member of their component.
			if ri < rj {
				parent[rj] = ri
			} else {
				parent[ri] = rj
			}
		}
	}

	for i := 0; i < len(reps); i++ {
		for j := i + 1; j < len(reps); j++ {
			if CosineSimilarity(reps[i].Vector, reps[j].Vector) >= e.threshold {
				union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	for i := range reps {
		root := find(i)
		members[root] = append(members[root], i)
	}

	roots := make([]int, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	createdAt := e.now().UTC()
	clusters := make([]*types.NarrativeCluster, 0, len(roots))
	for _, root := range roots {
		idxs := members[root]
		ids := make([]string, len(idxs))
		vectors := make([][]float32, len(idxs))
		for k, idx := range idxs {
			ids[k] = reps[idx].ArticleID
			vectors[k] = reps[idx].Vector
		}
		sort.Strings(ids)

		clusters = append(clusters, &types.NarrativeCluster{
			// The smallest member ID is stable as long as membership is,
			// so re-running on an unchanged set reproduces identifiers.
			ClusterID:        "story-" + ids[0],
			MemberArticleIDs: ids,
			Centroid:         centroid(vectors),
			CreatedAt:        createdAt,
		})
	}

	return clusters, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Zero when either vector is empty, zero-length, or the dimensions differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil
	}

	out := make([]float32, len(vectors[0]))
	for _, vec := range vectors {
		for i, v := range vec {
			out[i] += v
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}

// LabelClusters attaches a short label to each cluster from its members'
// most frequent title terms. Advisory, presentation-facing metadata only.
func LabelClusters(clusters []*types.NarrativeCluster, titles map[string]string) {
	for _, cluster := range clusters {
		counts := make(map[string]int)
		order := make([]string, 0)
		for _, id := range cluster.MemberArticleIDs {
			for _, token := range tokenize(titles[id]) {
				if len(token) < 4 || stopwords[token] {
					continue
				}
				if counts[token] == 0 {
					order = append(order, token)
				}
				counts[token]++
			}
		}

		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		if len(order) > 3 {
			order = order[:3]
		}
		for i, term := range order {
			first, size := utf8.DecodeRuneInString(term)
			order[i] = string(unicode.ToUpper(first)) + term[size:]
		}
		cluster.Label = strings.Join(order, " ")
	}
}

var stopwords = map[string]bool{
	"about": true, "after": true, "amid": true, "from": true, "have": true,
	"over": true, "says": true, "that": true, "their": true, "this": true,
	"what": true, "with": true,
}
