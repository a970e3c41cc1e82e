package board

// Tool identifies how a stroke is composited onto the canvas.
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// Defaults applied once when a live path is created. Subsequent fragments
// for the same path never change the path's visual identity.
const (
	DefaultColor   = "#000000"
	DefaultOpacity = 1.0
)

// Point is a single stroke sample. Coordinates are fractions of the canvas
// width/height in [0,1] so geometry is independent of each client's pixel
// resolution.
type Point struct {
	XN float64 `json:"xN"`
	YN float64 `json:"yN"`
	T  int64   `json:"t"`
}

// Path is one continuous stroke, either still being drawn (live) or part of
// the room's committed history. WidthN is a fraction of canvas width.
type Path struct {
	ID      string  `json:"id"`
	UserID  string  `json:"userId"`
	Tool    Tool    `json:"tool"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	WidthN  float64 `json:"widthN,omitempty"`
	Points  []Point `json:"points"`
}

// Fragment is one inbound draw sample. Metadata fields are only honored on
// the first fragment of a path; Opacity is a pointer so an explicit 0 can be
// told apart from an absent field.
type Fragment struct {
	PathID  string   `json:"pathId"`
	UserID  string   `json:"userId"`
	Tool    Tool     `json:"tool,omitempty"`
	Color   string   `json:"color,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	WidthN  float64  `json:"widthN,omitempty"`
	Point   *Point   `json:"point"`
}

// Valid reports whether the fragment carries the fields every draw event must
// have. Anything else is malformed input from a misbehaving connection.
func (f *Fragment) Valid() bool {
	return f != nil && f.PathID != "" && f.Point != nil
}

// newLivePath builds a path from the first fragment seen for its id,
// normalizing defaults exactly once.
func newLivePath(f *Fragment) *Path {
	p := &Path{
		ID:      f.PathID,
		UserID:  f.UserID,
		Tool:    f.Tool,
		Color:   f.Color,
		Opacity: DefaultOpacity,
		WidthN:  f.WidthN,
		Points:  make([]Point, 0, 8),
	}
	if p.Tool == "" {
		p.Tool = ToolBrush
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	if f.Opacity != nil {
		p.Opacity = *f.Opacity
	}
	return p
}
