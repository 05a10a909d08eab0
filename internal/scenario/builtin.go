package scenario

import (
	"sort"
	"time"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/waiter"
)

// CheckoutForm verifies that the payment step of checkout mounts without crashing.
func CheckoutForm() Scenario {
	proceed := schemas.ByRoleName("button", "Proceed to Payment")
	return Scenario{
		Name:        "checkout-form",
		Description: "Proceed from the cart to payment and wait for the shipping form to render.",
		Path:        "/store/cart",
		Steps: []Step{
			Expect(proceed, waiter.Visible(), 5*time.Second),
			Click(proceed),
			Expect(schemas.ByRoleName("heading", "Shipping Address"), waiter.Visible(), 10*time.Second),
		},
		SuccessArtifact: "checkout_form.png",
		FailureArtifact: "error.png",
	}
}

// DarkMode verifies that the theme switch puts the document into dark mode.
func DarkMode() Scenario {
	toggle := schemas.ByRole("switch")
	return Scenario{
		Name:        "dark-mode",
		Description: "Toggle the theme switch and check the root element gains the dark class.",
		Path:        "/",
		Steps: []Step{
			Capture("light-mode.png"),
			Expect(toggle, waiter.Visible(), 0),
			Click(toggle),
			Expect(schemas.ByCSS("html"), waiter.MustHaveClass(`\bdark\b`), 2*time.Second),
		},
		SuccessArtifact: "dark-mode.png",
		FailureArtifact: "dark-mode-error.png",
	}
}

var builtins = map[string]func() Scenario{
	"checkout-form": CheckoutForm,
	"dark-mode":     DarkMode,
}

// Builtin returns a fresh copy of the named built-in scenario.
func Builtin(name string) (Scenario, bool) {
	fn, ok := builtins[name]
	if !ok {
		return Scenario{}, false
	}
	return fn(), true
}

// Builtins returns every built-in scenario, sorted by name.
func Builtins() []Scenario {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		out = append(out, builtins[name]())
	}
	return out
}
