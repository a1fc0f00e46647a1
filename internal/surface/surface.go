// Package surface holds the headless presentation surface that settings effects act on.
package surface

import (
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-runewidth"
)

// Kind identifies an element of the surface.
type Kind string

const (
	KindBanner     Kind = "maintenance-banner"
	KindOverlay    Kind = "maintenance-overlay"
	KindDebugPanel Kind = "debug-panel"
	KindTitleBound Kind = "title-bound"
)

const (
	// MaintenanceText is shown in the maintenance banner.
	MaintenanceText = "System under maintenance. Some features may be unavailable."

	defaultWidth          = 80
	defaultDebugLineLimit = 200
)

// Element is one node of the surface.
type Element struct {
	ID   string
	Kind Kind
	Text string
}

// Option configures a Document.
type Option func(*Document)

// WithWidth sets the render width in terminal cells.
func WithWidth(width int) Option {
	return func(d *Document) {
		if width > 0 {
			d.width = width
		}
	}
}

// WithDebugLineLimit caps the number of lines kept by the debug panel.
func WithDebugLineLimit(limit int) Option {
	return func(d *Document) {
		if limit > 0 {
			d.lineLimit = limit
		}
	}
}

// Document is a thread-safe element tree standing in for the application page.
type Document struct {
	mu        sync.RWMutex
	title     string
	elements  []Element
	lines     []string
	width     int
	lineLimit int
}

// NewDocument creates an empty Document.
func NewDocument(opts ...Option) *Document {
	d := &Document{
		width:     defaultWidth,
		lineLimit: defaultDebugLineLimit,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SetTitle sets the document title and the text of every title-bound element.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.title = title

	for i := range d.elements {
		if d.elements[i].Kind == KindTitleBound {
			d.elements[i].Text = title
		}
	}
}

// Title returns the document title.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.title
}

// BindTitle adds an element with the given id whose text follows the title.
// Binding an existing id is a no-op.
func (d *Document) BindTitle(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexLocked(id) >= 0 {
		return
	}

	d.elements = append(d.elements, Element{ID: id, Kind: KindTitleBound, Text: d.title})
}

// BoundText returns the text of the title-bound element id.
func (d *Document) BoundText(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i := d.indexLocked(id)
	if i < 0 || d.elements[i].Kind != KindTitleBound {
		return "", false
	}

	return d.elements[i].Text, true
}

// EnableMaintenance shows the maintenance banner and overlay once.
func (d *Document) EnableMaintenance() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.addOnceLocked(Element{ID: string(KindBanner), Kind: KindBanner, Text: MaintenanceText})
	d.addOnceLocked(Element{ID: string(KindOverlay), Kind: KindOverlay})
}

// DisableMaintenance removes the maintenance banner and overlay.
func (d *Document) DisableMaintenance() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeKindLocked(KindBanner)
	d.removeKindLocked(KindOverlay)
}

// EnableDebugPanel shows the debug panel once.
func (d *Document) EnableDebugPanel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.addOnceLocked(Element{ID: string(KindDebugPanel), Kind: KindDebugPanel})
}

// DisableDebugPanel removes the debug panel and its lines.
func (d *Document) DisableDebugPanel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeKindLocked(KindDebugPanel)
	d.lines = nil
}

// AppendDebugLine adds a line to the debug panel. Lines are dropped while the panel is hidden.
func (d *Document) AppendDebugLine(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.countLocked(KindDebugPanel) == 0 {
		return
	}

	d.lines = append(d.lines, line)

	if over := len(d.lines) - d.lineLimit; over > 0 {
		d.lines = slices.Delete(d.lines, 0, over)
	}
}

// DebugLines returns a copy of the debug panel lines, oldest first.
func (d *Document) DebugLines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return slices.Clone(d.lines)
}

// Count returns the number of elements of kind.
func (d *Document) Count(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.countLocked(kind)
}

// Has reports whether at least one element of kind exists.
func (d *Document) Has(kind Kind) bool {
	return d.Count(kind) > 0
}

// Elements returns a copy of the element tree.
func (d *Document) Elements() []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return slices.Clone(d.elements)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	bannerStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("11"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8"))
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// Render writes the document to w.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	title := d.title
	width := d.width
	banner := d.countLocked(KindBanner) > 0
	overlay := d.countLocked(KindOverlay) > 0
	panel := d.countLocked(KindDebugPanel) > 0
	lines := slices.Clone(d.lines)
	d.mu.RUnlock()

	var b strings.Builder

	b.WriteString(titleStyle.Render(runewidth.Truncate(title, width, "…")))
	b.WriteString("\n")

	if banner {
		b.WriteString(bannerStyle.Width(width).Render(runewidth.Truncate(MaintenanceText, width, "…")))
		b.WriteString("\n")
	}

	if overlay {
		b.WriteString(mutedStyle.Render("[interaction blocked]"))
		b.WriteString("\n")
	}

	if panel {
		inner := max(width-4, 1)

		body := make([]string, 0, len(lines)+1)
		body = append(body, titleStyle.Render("Debug"))

		for _, line := range lines {
			body = append(body, runewidth.FillRight(runewidth.Truncate(line, inner, "…"), inner))
		}

		b.WriteString(panelStyle.Render(strings.Join(body, "\n")))
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "failed to render surface")
	}

	return nil
}

func (d *Document) indexLocked(id string) int {
	return slices.IndexFunc(d.elements, func(e Element) bool { return e.ID == id })
}

func (d *Document) countLocked(kind Kind) int {
	n := 0

	for _, e := range d.elements {
		if e.Kind == kind {
			n++
		}
	}

	return n
}

func (d *Document) addOnceLocked(e Element) {
	if d.countLocked(e.Kind) > 0 {
		return
	}

	d.elements = append(d.elements, e)
}

func (d *Document) removeKindLocked(kind Kind) {
	d.elements = slices.DeleteFunc(d.elements, func(e Element) bool { return e.Kind == kind })
}
