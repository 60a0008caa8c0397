package nav

import (
	"html"

	"github.com/vango-dev/firebolt/pkg/history"
	"github.com/vango-dev/firebolt/pkg/render"
)

// ClickEvent is a pointer click on a link.
type ClickEvent struct {
	// Button is the pressed button; 0 is the primary button.
	Button int

	Ctrl, Meta, Alt, Shift bool

	defaultPrevented bool
}

// PreventDefault stops the browser's default handling.
func (e *ClickEvent) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *ClickEvent) DefaultPrevented() bool {
	return e.defaultPrevented
}

func (e *ClickEvent) modified() bool {
	return e.Ctrl || e.Meta || e.Alt || e.Shift || e.Button != 0
}

// Link is a navigation trigger.
type Link struct {
	Href    string
	Replace bool

	// OnClick runs before navigation and may call PreventDefault to stop it.
	OnClick func(e *ClickEvent)

	// Children is the link content.
	Children render.Fragment
}

// Mount prefetches the target route's module.
func (l *Link) Mount(c *Controller) {
	c.Prefetch(l.Href)
}

// Click handles a click. Modified and non-primary clicks are left to the
// browser. It reports whether the click started a navigation.
func (l *Link) Click(c *Controller, e *ClickEvent) (bool, error) {
	if e.modified() {
		return false, nil
	}
	if l.OnClick != nil {
		l.OnClick(e)
	}
	if e.DefaultPrevented() {
		return false, nil
	}
	e.PreventDefault()

	var opts []history.NavigateOption
	if l.Replace {
		opts = append(opts, history.WithReplace())
	}
	if err := c.Navigate(l.Href, opts...); err != nil {
		return false, err
	}
	return true, nil
}

// Render renders the anchor element.
func (l *Link) Render() render.Fragment {
	if l.Children.IsPending() || l.Children.Err() != nil {
		return l.Children
	}
	return render.HTML(`<a href="` + html.EscapeString(l.Href) + `">` + l.Children.HTML() + `</a>`)
}
