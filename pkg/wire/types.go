// Package wire implements the ScribeFS framing protocol.
//
// Every hop in the system (client to name node, client to storage node,
// name node to storage node, storage node heartbeats) exchanges the same
// fixed frame: a message kind, a command code, a status code, the caller
// identity, a filename, and a bounded opaque payload. Frames are XDR
// encoded (RFC 4506) and prefixed with a protocol version, so the format
// is byte-order and word-size independent.
//
// Payload sub-fields within Data are pipe-delimited text; see the payload
// helpers in this package.
package wire

import (
	"errors"
	"fmt"
)

// Kind identifies the frame type.
type Kind int32

const (
	KindRegisterSS   Kind = 1 // storage node registration
	KindRegisterUser Kind = 2 // user registration
	KindCommand      Kind = 3 // client request
	KindResponse     Kind = 4 // server reply
	KindSSCommand    Kind = 5 // name node control request to a storage node
	KindHeartbeat    Kind = 6 // storage node liveness report
	KindAck          Kind = 7 // heartbeat acknowledgement
)

func (k Kind) String() string {
	switch k {
	case KindRegisterSS:
		return "register-ss"
	case KindRegisterUser:
		return "register-user"
	case KindCommand:
		return "command"
	case KindResponse:
		return "response"
	case KindSSCommand:
		return "ss-command"
	case KindHeartbeat:
		return "heartbeat"
	case KindAck:
		return "ack"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// Command is the operation requested by a frame.
type Command int32

const (
	CmdView            Command = 1
	CmdRead            Command = 2
	CmdCreate          Command = 3
	CmdWrite           Command = 4
	CmdDelete          Command = 5
	CmdInfo            Command = 6
	CmdList            Command = 7
	CmdAddAccess       Command = 8
	CmdRemAccess       Command = 9
	CmdStream          Command = 10
	CmdUndo            Command = 11
	CmdCopy            Command = 12
	CmdFileInfo        Command = 13
	CmdExec            Command = 14
	CmdWriteCommit     Command = 15
	CmdLockAcquire     Command = 16
	CmdLockRelease     Command = 17
	CmdCreateFolder    Command = 18
	CmdMove            Command = 19
	CmdViewFolder      Command = 20
	CmdCheckpoint      Command = 21
	CmdViewCheckpoint  Command = 22
	CmdRevert          Command = 23
	CmdListCheckpoints Command = 24
	CmdRequestAccess   Command = 25
	CmdViewRequests    Command = 26
	CmdApproveRequest  Command = 27
	CmdDenyRequest     Command = 28
)

var commandNames = map[Command]string{
	CmdView:            "view",
	CmdRead:            "read",
	CmdCreate:          "create",
	CmdWrite:           "write",
	CmdDelete:          "delete",
	CmdInfo:            "info",
	CmdList:            "list",
	CmdAddAccess:       "add-access",
	CmdRemAccess:       "rem-access",
	CmdStream:          "stream",
	CmdUndo:            "undo",
	CmdCopy:            "copy",
	CmdFileInfo:        "fileinfo",
	CmdExec:            "exec",
	CmdWriteCommit:     "write-commit",
	CmdLockAcquire:     "lock-acquire",
	CmdLockRelease:     "lock-release",
	CmdCreateFolder:    "create-folder",
	CmdMove:            "move",
	CmdViewFolder:      "view-folder",
	CmdCheckpoint:      "checkpoint",
	CmdViewCheckpoint:  "view-checkpoint",
	CmdRevert:          "revert",
	CmdListCheckpoints: "list-checkpoints",
	CmdRequestAccess:   "request-access",
	CmdViewRequests:    "view-requests",
	CmdApproveRequest:  "approve-request",
	CmdDenyRequest:     "deny-request",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int32(c))
}

// Status is the structured result code carried in every response frame.
// Errors are values: operations never signal failure out of band.
type Status int32

const (
	StatusOK                Status = 0
	StatusFileNotFound      Status = 1
	StatusUnauthorized      Status = 2
	StatusFileLocked        Status = 3
	StatusInvalidIndex      Status = 4
	StatusFileExists        Status = 5
	StatusPermissionDenied  Status = 6
	StatusInvalidCommand    Status = 7
	StatusStorageServerDown Status = 8
	StatusInternal          Status = 9
	StatusUserNotFound      Status = 10
	StatusNoStorageServers  Status = 11
	StatusInvalidParameters Status = 12
	StatusExecFailed        Status = 13
)

var statusMessages = map[Status]string{
	StatusOK:                "success",
	StatusFileNotFound:      "file not found",
	StatusUnauthorized:      "unauthorized",
	StatusFileLocked:        "file locked",
	StatusInvalidIndex:      "invalid index",
	StatusFileExists:        "file already exists",
	StatusPermissionDenied:  "permission denied",
	StatusInvalidCommand:    "invalid command",
	StatusStorageServerDown: "storage server down",
	StatusInternal:          "internal error",
	StatusUserNotFound:      "user not found",
	StatusNoStorageServers:  "no storage servers available",
	StatusInvalidParameters: "invalid parameters",
	StatusExecFailed:        "execution failed",
}

func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// StatusError carries a protocol status across layers as a Go error.
// Handlers unwrap it into the response frame; everything else wraps it
// with fmt.Errorf("...: %w", err) as usual.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Status.String()
}

// Errorf builds a StatusError with a formatted message.
func Errorf(status Status, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the protocol status from err. Non-StatusError values
// map to StatusInternal; nil maps to StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusInternal
}
