package debug

import (
	"io"

	"github.com/bradleyjkemp/memviz"
)

// DumpGraph writes a Graphviz description of the values and everything
// reachable from them. Pass pointers so shared structure shows up as edges.
func DumpGraph(w io.Writer, values ...any) {
	memviz.Map(w, values...)
}
