// Package products implements the product management workflow behind the
// products page.
//
// # States
//
//	Idle ──OpenCreate/OpenEdit──▶ ModalOpen ──Submit──▶ Submitting
//	  ▲                              │  ▲                   │
//	  └──────────Cancel──────────────┘  └──── failure ──────┤
//	  ▲                                                     │
//	  └──────────────── success (list refetched) ───────────┘
//
// A Workflow belongs to one browser session's list view. Opening the modal
// always starts from a clean draft; Cancel discards the draft, the image
// entry, its preview, and all errors.
//
// # Images
//
// The draft has a single image slot. Editing seeds it with the product's
// current remote image, which is never re-uploaded; picking a file replaces
// it with a pending upload whose type is sniffed from its content. Non-image
// files are rejected with ErrNotImage and the slot keeps what it had.
//
// # Submissions
//
// Submit validates before any network call: Create without an image, a
// WhatsApp number that is not 10 to 15 digits, a missing name, price or
// category all stop there with ValidationErrors. Every modal gets a nonce and
// a form only saves while its modal is open, so a second POST of the same
// form is refused with ErrBusy while the first is in flight and ErrNoModal
// after it closed the modal. A missing token is refused with
// backend.ErrUnauthorized.
//
// Deletes have no modal to close. Each confirmation prompt carries a token
// and, with a submit.Guard configured, a token deletes at most once; a
// repeat is refused with submit.ErrDuplicateSubmission.
//
// After a successful create, update, or delete the whole list is refetched.
// A failed delete leaves the list untouched.
//
// # Dismissal
//
// Dismiss cancels the workflow's scope. Calls in flight are cancelled and
// results that still arrive are dropped with ErrDismissed instead of being
// written into a view nobody is looking at.
package products
