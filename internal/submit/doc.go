// Package submit suppresses duplicate form submissions.
//
// Every product form is rendered with a fresh nonce. The handler claims the
// nonce before calling the backend; a second POST carrying the same nonce,
// such as a double click or a browser resubmit, gets ErrDuplicateSubmission
// and never reaches the backend. A failed save releases the nonce so the
// operator can correct the form and try again.
//
// Claims expire after a TTL and the guard holds at most maxSize of them,
// evicting the oldest first.
package submit
