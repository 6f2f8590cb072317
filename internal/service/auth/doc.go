// Package auth captures the OAuth token of a signed-in user.
//
// A stealth browser session opens the web sign-in dialog and polls for the
// oauth_token cookie once the user has logged in.
package auth
