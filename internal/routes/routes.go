// Package routes names the logical pages of the application and maps them to
// URL paths.
package routes

// Route is a logical page identifier.
type Route string

const (
	Login   Route = "Login"
	Bills   Route = "Bills"
	NewBill Route = "NewBill"
)

var paths = map[Route]string{
	Login:   "/",
	Bills:   "/employee/bills",
	NewBill: "/employee/bill/new",
}

// Path resolves a route to its URL path. Unknown routes resolve to the login page.
func Path(r Route) string {
	if p, ok := paths[r]; ok {
		return p
	}
	return paths[Login]
}

// Navigator changes the visible page. Implementations must return without
// blocking on I/O.
type Navigator func(Route)
