package trial

import (
	"encoding/json"
	"fmt"
)

// ErrorKind is the sum type carried by a terminal Error trial status. Each
// variant is a distinct cause; exactly one of the payload pointers below is
// non-nil.
type ErrorKind struct {
	tag string

	exception         *ExceptionInfo
	errorCode         *ErrorCodeInfo
	exitStatus        *ExitStatusInfo
	badOutput         *BadOutputInfo
	unknownExperiment *UnknownExperimentInfo
}

type ExceptionInfo struct {
	TypeID string `json:"typeid"`
	What   string `json:"what"`
}

type ErrorCodeInfo struct {
	Value    int    `json:"value"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

type ExitStatusInfo struct {
	Code   int    `json:"code"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

type BadOutputInfo struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

type UnknownExperimentInfo struct {
	Name string `json:"name"`
}

func NewException(typeID, what string) ErrorKind {
	return ErrorKind{tag: "Exception", exception: &ExceptionInfo{TypeID: typeID, What: what}}
}

func NewErrorCode(value int, category, message, stdout, stderr string) ErrorKind {
	return ErrorKind{tag: "ErrorCode", errorCode: &ErrorCodeInfo{
		Value: value, Category: category, Message: message, Stdout: stdout, Stderr: stderr,
	}}
}

func NewExitStatus(code int, stdout, stderr string) ErrorKind {
	return ErrorKind{tag: "ExitStatus", exitStatus: &ExitStatusInfo{Code: code, Stdout: stdout, Stderr: stderr}}
}

func NewBadOutput(stdout, stderr string) ErrorKind {
	return ErrorKind{tag: "BadOutput", badOutput: &BadOutputInfo{Stdout: stdout, Stderr: stderr}}
}

func NewUnknownExperiment(name string) ErrorKind {
	return ErrorKind{tag: "UnknownExperiment", unknownExperiment: &UnknownExperimentInfo{Name: name}}
}

func (e ErrorKind) Tag() string { return e.tag }

func (e ErrorKind) Exception() (*ExceptionInfo, bool)                   { return e.exception, e.exception != nil }
func (e ErrorKind) ErrorCode() (*ErrorCodeInfo, bool)                   { return e.errorCode, e.errorCode != nil }
func (e ErrorKind) ExitStatus() (*ExitStatusInfo, bool)                 { return e.exitStatus, e.exitStatus != nil }
func (e ErrorKind) BadOutput() (*BadOutputInfo, bool)                   { return e.badOutput, e.badOutput != nil }
func (e ErrorKind) UnknownExperiment() (*UnknownExperimentInfo, bool)   { return e.unknownExperiment, e.unknownExperiment != nil }

func (e ErrorKind) Error() string {
	switch e.tag {
	case "Exception":
		return fmt.Sprintf("exception (%s): %s", e.exception.TypeID, e.exception.What)
	case "ErrorCode":
		return fmt.Sprintf("error code %d (%s): %s", e.errorCode.Value, e.errorCode.Category, e.errorCode.Message)
	case "ExitStatus":
		return fmt.Sprintf("exit status %d", e.exitStatus.Code)
	case "BadOutput":
		return "bad output: stdout did not parse as TrialOutput"
	case "UnknownExperiment":
		return fmt.Sprintf("unknown experiment %q", e.unknownExperiment.Name)
	default:
		return "unknown error kind"
	}
}

func (e ErrorKind) MarshalJSON() ([]byte, error) {
	switch e.tag {
	case "Exception":
		return json.Marshal(map[string]*ExceptionInfo{"Exception": e.exception})
	case "ErrorCode":
		return json.Marshal(map[string]*ErrorCodeInfo{"ErrorCode": e.errorCode})
	case "ExitStatus":
		return json.Marshal(map[string]*ExitStatusInfo{"ExitStatus": e.exitStatus})
	case "BadOutput":
		return json.Marshal(map[string]*BadOutputInfo{"BadOutput": e.badOutput})
	case "UnknownExperiment":
		return json.Marshal(map[string]*UnknownExperimentInfo{"UnknownExperiment": e.unknownExperiment})
	default:
		return nil, fmt.Errorf("error kind: unset tag")
	}
}

func (e *ErrorKind) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("error kind: expected exactly one tag, got %d", len(m))
	}
	for tag, payload := range m {
		switch tag {
		case "Exception":
			var v ExceptionInfo
			if err := json.Unmarshal(payload, &v); err != nil {
				return err
			}
			*e = ErrorKind{tag: tag, exception: &v}
		case "ErrorCode":
			var v ErrorCodeInfo
			if err := json.Unmarshal(payload, &v); err != nil {
				return err
			}
			*e = ErrorKind{tag: tag, errorCode: &v}
		case "ExitStatus":
			var v ExitStatusInfo
			if err := json.Unmarshal(payload, &v); err != nil {
				return err
			}
			*e = ErrorKind{tag: tag, exitStatus: &v}
		case "BadOutput":
			var v BadOutputInfo
			if err := json.Unmarshal(payload, &v); err != nil {
				return err
			}
			*e = ErrorKind{tag: tag, badOutput: &v}
		case "UnknownExperiment":
			var v UnknownExperimentInfo
			if err := json.Unmarshal(payload, &v); err != nil {
				return err
			}
			*e = ErrorKind{tag: tag, unknownExperiment: &v}
		default:
			return fmt.Errorf("error kind: unknown tag %q", tag)
		}
	}
	return nil
}
