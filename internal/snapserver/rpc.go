// Package snapserver implements the JSON-RPC 2.0 transport to a Snapcast
// server: a single persistent, newline-delimited TCP connection with
// request/response correlation, notification fan-out, and a reconnect loop.
package snapserver

import "encoding/json"

// rpcRequest is an outbound JSON-RPC 2.0 call.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// rpcError is the JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcMessage is the shape used to decode any inbound frame before deciding
// whether it is a response (has "id") or a notification (has "method" and
// no "id").
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Notification is a decoded server-to-client event.
type Notification struct {
	Method string
	Params json.RawMessage
}

// Notification method names the transport recognizes and fans out.
const (
	MethodClientOnConnect        = "Client.OnConnect"
	MethodClientOnDisconnect     = "Client.OnDisconnect"
	MethodClientOnVolumeChanged  = "Client.OnVolumeChanged"
	MethodClientOnLatencyChanged = "Client.OnLatencyChanged"
	MethodClientOnNameChanged    = "Client.OnNameChanged"
	MethodGroupOnMute            = "Group.OnMute"
	MethodGroupOnStreamChanged   = "Group.OnStreamChanged"
	MethodGroupOnNameChanged     = "Group.OnNameChanged"
	MethodStreamOnUpdate         = "Stream.OnUpdate"
	MethodServerOnUpdate         = "Server.OnUpdate"
)

// Request method names the transport issues.
const (
	MethodServerGetStatus  = "Server.GetStatus"
	MethodClientSetVolume  = "Client.SetVolume"
	MethodClientSetLatency = "Client.SetLatency"
	MethodClientSetName    = "Client.SetName"
	MethodClientSetGroup   = "Client.SetGroup"
	MethodGroupSetClients  = "Group.SetClients"
	MethodGroupSetMute     = "Group.SetMute"
	MethodGroupSetStream   = "Group.SetStream"
	MethodGroupSetName     = "Group.SetName"
)
