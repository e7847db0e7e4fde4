// Package httpapi exposes the catalog over HTTP.
//
// Routes, under /lib/{item} where item is author, genre, series or book:
//
//	GET|POST /create?name=..&attr=..   302 ./{id}, 409 when the name exists
//	GET      /find?name=..             302 ./{id} or 404
//	GET      /index                    JSON object of id to name
//	GET      /{id}                     JSON view of the record
//	GET|POST /{id}/update?attr=..      302 ../{id}
//	GET|POST /{id}/delete              200 "Deleted: ..."
//
// Redirect locations are relative. Client errors answer 400, unknown items
// and records 404, name conflicts 409, and database failures 500, each
// with a JSON body {"error": ..., "status": ...}.
//
// Every write runs in its own store scope and drops the read cache entries
// of the kinds it touched once committed. Requests are logged with a
// request id taken from X-Request-ID or generated.
package httpapi
