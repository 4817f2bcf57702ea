package mcts

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
	"github.com/azplay/azplay/game"
)

type dotNode struct {
	*Node
	Player game.Player
}

func (n dotNode) State() string {
	var buf bytes.Buffer
	_, cols := n.state.BoardSize()
	for i := 0; i < n.state.ActionSpace(); i++ {
		if i%cols == 0 {
			fmt.Fprint(&buf, "⎢ ")
		}
		fmt.Fprintf(&buf, "%s ", n.state.At(i))
		if (i+1)%cols == 0 {
			fmt.Fprint(&buf, "⎥<BR />")
		}
	}
	return buf.String()
}

// ToDot renders the tree of the last search in the DOT language.
// Nodes that were never visited are left out when skipUnvisited is true.
func (t *MCTS) ToDot(skipUnvisited bool) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if !t.root.isValid() {
		return g.String(), nil
	}

	var buf bytes.Buffer
	queue := []naughty{t.root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := dotNode{Node: t.nodeFromNaughty(id), Player: t.nodeFromNaughty(id).state.LastMover()}

		if err := tmpl.Execute(&buf, n); err != nil {
			return "", err
		}
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		}
		if err := g.AddNode("G", fmt.Sprintf("%d", id), attrs); err != nil {
			return "", err
		}
		buf.Reset()

		for _, kid := range t.Children(id) {
			if skipUnvisited && t.nodeFromNaughty(kid).visits == 0 {
				continue
			}
			queue = append(queue, kid)
		}
		if n.parent.isValid() {
			if err := g.AddEdge(fmt.Sprintf("%d", n.parent), fmt.Sprintf("%d", id), true, nil); err != nil {
				return "", err
			}
		}
	}
	return g.String(), nil
}

const tmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Node ID</TD><TD>{{.ID}}</TD></TR>
<TR><TD>Move</TD><TD>{{.Move}}</TD></TR>
<TR><TD>Player</TD><TD>{{printf "%v" .Player}}</TD></TR>
<TR><TD>Visits</TD><TD>{{.Visits}}</TD></TR>
<TR><TD>Prior</TD><TD>{{printf "%.3f" .Prior}}</TD></TR>
<TR><TD>Value</TD><TD>{{printf "%.3f" .Value}}</TD></TR>
<TR><TD>State</TD><TD>{{.State}}</TD></TR>
</TABLE>
>
`

var tmpl *template.Template

func init() {
	tmpl = template.Must(template.New("name").Parse(tmplRaw))
}
