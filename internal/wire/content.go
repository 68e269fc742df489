package wire

// Message content payloads, grounded on gonb's messages.go content
// structs (KernelInfo, CompleteReply, InspectReply, CommInfoReply,
// CommOpen/CommMsg/CommClose) and extended to cover the request/reply
// pairs spec.md's check catalog drives (execute, is_complete, history,
// shutdown, interrupt, stdin input).

// MIMEMap holds MIME-type-keyed representations of a displayable value.
// Every map should carry at least a "text/plain" entry.
type MIMEMap = map[string]any

// KernelInfoReply is the content of a kernel_info_reply.
type KernelInfoReply struct {
	Status                string             `json:"status"`
	ProtocolVersion        string             `json:"protocol_version"`
	Implementation         string             `json:"implementation"`
	ImplementationVersion  string             `json:"implementation_version"`
	LanguageInfo           KernelLanguageInfo `json:"language_info"`
	Banner                 string             `json:"banner"`
	HelpLinks              []HelpLink         `json:"help_links"`
}

// KernelLanguageInfo describes the language a kernel executes.
type KernelLanguageInfo struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	MIMEType       string `json:"mimetype"`
	FileExtension  string `json:"file_extension"`
	PygmentsLexer  string `json:"pygments_lexer"`
	CodeMirrorMode any    `json:"codemirror_mode"`
}

// HelpLink is one entry of kernel_info_reply's help_links.
type HelpLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ExecuteRequest is the content of an execute_request.
type ExecuteRequest struct {
	Code            string `json:"code"`
	Silent          bool   `json:"silent"`
	StoreHistory    bool   `json:"store_history"`
	AllowStdin      bool   `json:"allow_stdin"`
	StopOnError     bool   `json:"stop_on_error"`
}

// ExecuteReply is the content of an execute_reply.
type ExecuteReply struct {
	Status         string `json:"status"`
	ExecutionCount int    `json:"execution_count"`
	ErrorName      string `json:"ename,omitempty"`
	ErrorValue     string `json:"evalue,omitempty"`
	Traceback      []string `json:"traceback,omitempty"`
}

// StatusContent is the content of a status broadcast on iopub.
type StatusContent struct {
	ExecutionState string `json:"execution_state"`
}

// Execution states a status broadcast can carry.
const (
	ExecutionStateBusy    = "busy"
	ExecutionStateIdle    = "idle"
	ExecutionStateStarting = "starting"
)

// StreamContent is the content of a stream broadcast (stdout/stderr).
type StreamContent struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ExecuteInputContent is the content of an execute_input broadcast, echoing
// the code that is about to run.
type ExecuteInputContent struct {
	Code           string `json:"code"`
	ExecutionCount int    `json:"execution_count"`
}

// ExecuteResultContent is the content of an execute_result broadcast.
type ExecuteResultContent struct {
	ExecutionCount int     `json:"execution_count"`
	Data           MIMEMap `json:"data"`
	Metadata       MIMEMap `json:"metadata"`
}

// DisplayDataContent is the content of a display_data (or
// update_display_data) broadcast.
type DisplayDataContent struct {
	Data       MIMEMap `json:"data"`
	Metadata   MIMEMap `json:"metadata"`
	Transient  MIMEMap `json:"transient,omitempty"`
}

// ErrorContent is the content of an error broadcast.
type ErrorContent struct {
	ErrorName  string   `json:"ename"`
	ErrorValue string   `json:"evalue"`
	Traceback  []string `json:"traceback"`
}

// InputRequest is the content of an input_request sent by the kernel on
// stdin.
type InputRequest struct {
	Prompt   string `json:"prompt"`
	Password bool   `json:"password"`
}

// InputReply is the content of an input_reply this harness sends back on
// stdin.
type InputReply struct {
	Status string `json:"status"`
	Value  string `json:"value"`
}

// CommOpenContent is the content of a comm_open message.
type CommOpenContent struct {
	CommID     string         `json:"comm_id"`
	TargetName string         `json:"target_name"`
	Data       map[string]any `json:"data"`
}

// CommMsgContent is the content of a comm_msg message.
type CommMsgContent struct {
	CommID string         `json:"comm_id"`
	Data   map[string]any `json:"data"`
}

// CommCloseContent is the content of a comm_close message.
type CommCloseContent struct {
	CommID string         `json:"comm_id"`
	Data   map[string]any `json:"data"`
}

// CompleteRequest is the content of a complete_request.
type CompleteRequest struct {
	Code      string `json:"code"`
	CursorPos int    `json:"cursor_pos"`
}

// CompleteReply is the content of a complete_reply.
type CompleteReply struct {
	Status      string   `json:"status"`
	Matches     []string `json:"matches"`
	CursorStart int      `json:"cursor_start"`
	CursorEnd   int      `json:"cursor_end"`
	Metadata    MIMEMap  `json:"metadata"`
}

// IsCompleteRequest is the content of an is_complete_request.
type IsCompleteRequest struct {
	Code string `json:"code"`
}

// IsCompleteReply is the content of an is_complete_reply.
type IsCompleteReply struct {
	Status string `json:"status"`
	Indent string `json:"indent,omitempty"`
}

// HistoryRequest is the content of a history_request.
type HistoryRequest struct {
	Output  bool   `json:"output"`
	Raw     bool   `json:"raw"`
	HistAccessType string `json:"hist_access_type"`
	N       int    `json:"n"`
}

// HistoryReply is the content of a history_reply.
type HistoryReply struct {
	History [][]any `json:"history"`
}

// InspectRequest is the content of an inspect_request.
type InspectRequest struct {
	Code           string `json:"code"`
	CursorPos      int    `json:"cursor_pos"`
	DetailLevel    int    `json:"detail_level"`
}

// InspectReply is the content of an inspect_reply.
type InspectReply struct {
	Status   string  `json:"status"`
	Found    bool    `json:"found"`
	Data     MIMEMap `json:"data"`
	Metadata MIMEMap `json:"metadata"`
}

// CommInfoRequest is the content of a comm_info_request.
type CommInfoRequest struct {
	TargetName string `json:"target_name,omitempty"`
}

// CommInfoReply is the content of a comm_info_reply.
type CommInfoReply struct {
	Status string                       `json:"status"`
	Comms  map[string]map[string]string `json:"comms"`
}

// ShutdownRequest is the content of a shutdown_request.
type ShutdownRequest struct {
	Restart bool `json:"restart"`
}

// ShutdownReply is the content of a shutdown_reply.
type ShutdownReply struct {
	Status  string `json:"status"`
	Restart bool   `json:"restart"`
}

// InterruptRequest is the (empty) content of an interrupt_request.
type InterruptRequest struct{}

// InterruptReply is the content of an interrupt_reply.
type InterruptReply struct {
	Status string `json:"status"`
}
