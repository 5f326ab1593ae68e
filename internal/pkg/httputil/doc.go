// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers use these helpers instead of writing raw http.ResponseWriter calls
// so that every endpoint shares the same JSON envelope ({"success": true,
// "data": ...} or {"error": "..."}) and the same error logging.
package httputil
