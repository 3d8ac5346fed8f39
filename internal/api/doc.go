// Package api implements the HTTP REST API and WebSocket server for the
// datapoint gateway.
//
// This package provides:
//   - the datapoint type catalogue with encode and decode previews
//   - group address binding management
//   - group writes and reads through the KNX bridge
//   - a WebSocket hub relaying decoded states
//
// # Routes
//
// All routes live under /api/v1:
//
//	GET    /health                                  no auth
//	POST   /auth/login                              no auth
//	POST   /auth/ws-ticket                          any role
//	GET    /auth/me                                 any role
//	GET    /dpts                                    datapoint:read
//	GET    /dpts/{id}                               datapoint:read
//	POST   /dpts/{id}/encode                        datapoint:read
//	POST   /dpts/{id}/decode                        datapoint:read
//	GET    /datapoints                              datapoint:read
//	POST   /datapoints/reload                       binding:manage
//	GET    /datapoints/{main}/{middle}/{sub}        datapoint:read
//	PUT    /datapoints/{main}/{middle}/{sub}        binding:manage
//	DELETE /datapoints/{main}/{middle}/{sub}        binding:manage
//	POST   /datapoints/{main}/{middle}/{sub}/write  datapoint:write
//	POST   /datapoints/{main}/{middle}/{sub}/read   datapoint:write
//	GET    /ws?ticket=...                           ticket
//
// # Security
//
// Login exchanges configured account credentials for an HS256 JWT. Protected
// routes take it as a bearer token. WebSocket connections use single-use
// tickets to keep the token out of URLs.
//
// # WebSocket
//
// Clients subscribe to "datapoint.state" for every state, or to
// "datapoint.state:1/2/3" for one group address. The bridge feeds the hub
// through Hub.PublishState.
//
// # Graceful Degradation
//
// The server runs without a bridge. Catalogue and binding endpoints work,
// write and read return 503.
package api
