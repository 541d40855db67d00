// Package api contains the typed contract with the ZenChat backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     SignUp/Login/GoogleSignIn/VerifyToken for identity, plus chat CRUD,
//     SendMessage, and multipart UploadFile.
//  2. A concrete HTTP implementation (see HTTPClient) that encodes typed
//     arguments, decodes 2xx JSON bodies (a 204 or empty body yields a nil
//     result), and normalizes every non-2xx response into *Error with a
//     best-effort parse of the backend's {"error", "message"} body.
//
// # Error Handling
//
// Transport failures (no HTTP response at all) wrap ErrUnavailable and can
// be matched with errors.Is. HTTP-level failures are returned as *Error;
// use IsUnauthorized/IsForbidden/IsNotFound or errors.As for status checks.
//
// No retries are performed at this layer. Retry policy, if any, belongs to
// the caller.
package api
