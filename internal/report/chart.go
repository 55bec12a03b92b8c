// Package report turns flat record tables into hierarchical
// sunburst/treemap charts rendered with go-echarts.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/naka-gawa/pr-module-map/internal/domain"
)

// Chart type names accepted by Render.
const (
	ChartSunburst = "sunburst"
	ChartTreemap  = "treemap"
)

// commentColors is the RdYlBu-reversed continuous range used for the
// comment-count color dimension. The same stops feed the visual-map
// legend and the per-node colors so the two always agree.
var commentColors = []string{"#313695", "#4575b4", "#74add1", "#fee090", "#f46d43", "#d73027", "#a50026"}

// PathFunc declares the chart hierarchy: it returns the nesting
// segments for one record, outermost level first.
type PathFunc func(domain.Record) []string

// FilePath nests records as module > filename > pull request number.
func FilePath(r domain.Record) []string {
	return []string{r.Module, r.Filename, r.Number}
}

// ContributorPath nests records as contributor > module > filename.
func ContributorPath(r domain.Record) []string {
	return []string{r.Contributor, r.Module, r.Filename}
}

// node is one level of the aggregation tree. Terminal nodes accumulate
// the unit weight and comment count of every record that ends at that
// path, plus the hover columns of the first such record.
type node struct {
	value    int
	comments int
	count    int
	title    string
	url      string
	date     time.Time
	children map[string]*node
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func buildTree(records []domain.Record, path PathFunc) *node {
	root := newNode()
	for _, r := range records {
		cur := root
		for _, segment := range path(r) {
			child, ok := cur.children[segment]
			if !ok {
				child = newNode()
				cur.children[segment] = child
			}
			cur = child
		}
		cur.value += r.Unit
		cur.comments += r.Comments
		if cur.count == 0 {
			cur.title = r.Title
			cur.url = r.URL
			cur.date = r.Date
		}
		cur.count++
	}
	return root
}

// sortedNames returns child names alphabetically so rendered output is
// stable across runs.
func (n *node) sortedNames() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// totals returns the comment sum and record count of the whole subtree.
func (n *node) totals() (comments, count int) {
	comments, count = n.comments, n.count
	for _, child := range n.children {
		c, k := child.totals()
		comments += c
		count += k
	}
	return comments, count
}

// maxMeanComments is the upper bound of the color dimension: the
// largest per-node mean comment count among terminal nodes.
func (n *node) maxMeanComments() float64 {
	var max float64
	if n.count > 0 {
		max = float64(n.comments) / float64(n.count)
	}
	for _, child := range n.children {
		if v := child.maxMeanComments(); v > max {
			max = v
		}
	}
	return max
}

// chartNode is the raw series data item handed to echarts. The typed
// option structs only carry name, value and children, so the color and
// hover dimensions are attached here directly.
type chartNode struct {
	Name      string       `json:"name"`
	Value     float64      `json:"value,omitempty"`
	Children  []*chartNode `json:"children,omitempty"`
	ItemStyle *itemStyle   `json:"itemStyle,omitempty"`
	Tooltip   *nodeTooltip `json:"tooltip,omitempty"`
}

type itemStyle struct {
	Color string `json:"color"`
}

type nodeTooltip struct {
	Formatter string `json:"formatter"`
}

// chartNodes converts the subtree into series data, coloring every node
// by its mean comment count relative to maxComments.
func (n *node) chartNodes(maxComments float64) []*chartNode {
	out := make([]*chartNode, 0, len(n.children))
	for _, name := range n.sortedNames() {
		child := n.children[name]
		data := &chartNode{Name: name}
		if comments, count := child.totals(); count > 0 {
			mean := float64(comments) / float64(count)
			t := 0.0
			if maxComments > 0 {
				t = mean / maxComments
			}
			data.ItemStyle = &itemStyle{Color: commentColor(t)}
		}
		if len(child.children) == 0 {
			data.Value = float64(child.value)
			data.Tooltip = &nodeTooltip{Formatter: child.hoverText(name)}
		} else {
			data.Children = child.chartNodes(maxComments)
		}
		out = append(out, data)
	}
	return out
}

// hoverText renders the extra hover-display columns of a terminal node.
// A node holding a single record shows that record's title, date, URL
// and comment count; aggregated nodes show their totals.
func (n *node) hoverText(name string) string {
	if n.count == 1 && n.title != "" {
		return fmt.Sprintf("%s<br/>%s · %d comments<br/>%s", n.title, n.date.Format("2006-01-02"), n.comments, n.url)
	}
	return fmt.Sprintf("%s: %d changes · %d comments", name, n.value, n.comments)
}

// commentColor maps t in [0, 1] onto the commentColors range with
// linear interpolation between adjacent stops.
func commentColor(t float64) string {
	last := len(commentColors) - 1
	if t <= 0 {
		return commentColors[0]
	}
	if t >= 1 {
		return commentColors[last]
	}
	pos := t * float64(last)
	i := int(pos)
	if i >= last {
		return commentColors[last]
	}
	return lerpColor(commentColors[i], commentColors[i+1], pos-float64(i))
}

func lerpColor(a, b string, t float64) string {
	ar, ag, ab := splitHex(a)
	br, bg, bb := splitHex(b)
	lerp := func(x, y int) int {
		return int(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return fmt.Sprintf("#%02x%02x%02x", lerp(ar, br), lerp(ag, bg), lerp(ab, bb))
}

func splitHex(c string) (r, g, b int) {
	v, _ := strconv.ParseUint(strings.TrimPrefix(c, "#"), 16, 32)
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

// Render aggregates records along the declared hierarchy and writes a
// standalone HTML chart to w. Node size is the summed unit weight, node
// color is the mean comment count on a continuous scale, and terminal
// nodes carry the title/date/URL hover columns.
func Render(w io.Writer, chartType, title string, records []domain.Record, path PathFunc) error {
	root := buildTree(records, path)
	maxComments := root.maxMeanComments()
	data := root.chartNodes(maxComments)

	globalOpts := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1100px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min:     0,
			Max:     float32(maxComments),
			Text:    []string{"comments", "0"},
			InRange: &opts.VisualMapInRange{Color: commentColors},
		}),
	}

	switch chartType {
	case ChartSunburst:
		chart := charts.NewSunburst()
		chart.SetGlobalOptions(globalOpts...)
		chart.MultiSeries = append(chart.MultiSeries, charts.SingleSeries{Name: title, Type: types.ChartSunburst, Data: data})
		return chart.Render(w)
	case ChartTreemap:
		chart := charts.NewTreeMap()
		chart.SetGlobalOptions(globalOpts...)
		chart.MultiSeries = append(chart.MultiSeries, charts.SingleSeries{Name: title, Type: types.ChartTreeMap, Data: data})
		return chart.Render(w)
	default:
		return fmt.Errorf("unknown chart type %q (want %s or %s)", chartType, ChartSunburst, ChartTreemap)
	}
}

// WriteFile renders the chart into a file at path. The close error is
// checked so a short write cannot masquerade as success.
func WriteFile(path, chartType, title string, records []domain.Record, pathFn PathFunc) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Render(out, chartType, title, records, pathFn); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
