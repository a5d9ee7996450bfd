// Package webadmin provides the browser interface of the Stellara catalog admin.
//
// # Overview
//
// The admin is rendered on the server. The browser holds an opaque session
// cookie and a CSRF cookie; the backend token never leaves the server.
//
// Routes:
//
//	GET  /                                  redirect to /dashboard or /login
//	GET  /static/{file}                     embedded stylesheet (public)
//	GET  /login, POST /login, POST /logout  auth flow
//	GET  /dashboard                         summary tiles (loaded via htmx)
//	GET  /dashboard/stats                   tiles partial
//	GET  /dashboard/products                product list and open modal
//	GET  /dashboard/products/new            open an empty modal
//	GET  /dashboard/products/{id}/edit      open a modal seeded from a product
//	POST /dashboard/products/cancel         close the modal
//	POST /dashboard/products/save           submit the modal (multipart)
//	POST /dashboard/products/image          put a file in the image slot
//	POST /dashboard/products/image/remove   empty the image slot
//	GET  /dashboard/products/image/preview  show the image entry full size
//	POST /dashboard/products/{id}/delete    delete, with confirm=<prompt token>
//	GET  /dashboard/activity[?product=id]   recent operator activity
//	GET  /dashboard/help[/{page}]           help pages
//
// # Route Guard
//
// Everything under /dashboard requires a session holding a token. Browsers
// without one are redirected to /login; htmx requests get HX-Redirect.
//
// # Product Views
//
// Each browser session owns one products.Workflow, kept as a session part.
// Opening the dashboard or logging out dismisses it, which cancels calls in
// flight and discards their results.
//
// # Activity
//
// When Config.Activity is set, logins, logouts and successful product saves
// and deletes are appended to it. Recording never fails the action.
//
// # CSRF Protection
//
// All form submissions require CSRF tokens:
//
//	<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
//
// htmx requests send the token in the X-CSRF-Token header.
//
// # Usage
//
//	admin := webadmin.New(sessions, client, summary, guard, webadmin.Config{})
//	mux.Handle("/", admin.Handler())
package webadmin
