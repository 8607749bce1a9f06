package testing

import (
	"context"
	"testing"

	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/filter"
	"git.home.luguber.info/inful/doctool/internal/frontend"
	"git.home.luguber.info/inful/doctool/internal/identity"
	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/resolver"
)

// SampleHeader is a FakeFrontEnd source that covers every top-level group.
const SampleHeader = `/// Something that can be drawn.
@protocol Drawing
/// Draws the receiver.
- draw
@end

/// A widget.
///
/// Widgets are drawn on screen.
@interface Widget : NSObject <Drawing>
/// Creates a widget.
/// @param name The widget name.
/// @return A new widget.
+ widgetWithName:(NSString *)name
/// Resets the widget.
/// @deprecated Use reload.
- reset
/// The title.
@property NSString *title
- draw
@end

/// Loud additions.
@interface Widget (Loud)
/// Shouts.
- shout
@end

/// Sorted first when collated.
@interface apple : NSObject
@end

/// Computes a value.
/// @param x The input.
int compute(int x)

/// Widget modes.
enum WidgetMode { WidgetModeFast, WidgetModeSlow }
`

// SampleUnits parses SampleHeader as /src/Widget.h.
func SampleUnits(t testing.TB) []decl.Unit {
	t.Helper()
	unit, err := (&FakeFrontEnd{}).Parse(context.Background(), frontend.Request{Path: "/src/Widget.h", Content: []byte(SampleHeader)})
	if err != nil {
		t.Fatalf("Failed to parse sample header: %v", err)
	}
	return []decl.Unit{*unit}
}

// SampleLibrary resolves, filters and identifies SampleUnits with a fixed UUID seed.
func SampleLibrary(t testing.TB) *model.Library {
	t.Helper()
	return BuildLibrary(t, SampleUnits(t)...)
}

// BuildLibrary runs units through the resolver, filter and identity assigner with default options.
func BuildLibrary(t testing.TB, units ...decl.Unit) *model.Library {
	t.Helper()
	lib, err := resolver.New(nil, resolver.Options{InheritDocumentation: true}, nil).Resolve(units, nil)
	if err != nil {
		t.Fatalf("Failed to resolve units: %v", err)
	}
	return identity.Assign(filter.Apply(lib, filter.Options{}), identity.Options{Seed: "test"})
}
