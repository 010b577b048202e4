// Package auth is the client side of the WeTalk authentication flow: field
// validation, avatar staging, the HTTP client for the auth service, the
// session store and the redirect guards of the login screens.
//
// Session state:
//   - SessionStore holds the current Identity and the admin flag. Screens
//     only get the SessionReader view; the Authenticator is the single writer
//     and updates the store from the result of login, signup, admin login,
//     session checks and logouts.
//   - The admin flag is independent from the identity. A failed admin check
//     lowers it (fail closed).
//
// Forms:
//   - LoginForm, SignupForm and AdminLoginForm keep a Field record per input
//     and re-validate on every Set. Submit refuses invalid input locally and
//     runs at most one request at a time (Operation is the busy guard).
//   - Unmount cancels the pending request; a late response never reaches the
//     store.
//
// Notifications:
//   - Every submission reports loading, then success or error, to a Notifier
//     under a single notification ID. Sink errors are logged, not returned.
package auth
