package log

import "log/slog"

func JobID[T ~string](id T) slog.Attr {
	return slog.String("job_id", string(id))
}

func TraceID[T ~string](id T) slog.Attr {
	return slog.String("trace_id", string(id))
}

func ModuleID[T ~string](id T) slog.Attr {
	return slog.String("module_id", string(id))
}

func BlockID[T ~string](id T) slog.Attr {
	return slog.String("block_id", string(id))
}

func UnitID[T ~string](id T) slog.Attr {
	return slog.String("unit_id", string(id))
}

func StepID(id int) slog.Attr {
	return slog.Int("step_id", id)
}

func Strategy[T ~string](s T) slog.Attr {
	return slog.String("strategy", string(s))
}

func TxID[T ~string](id T) slog.Attr {
	return slog.String("tx_id", string(id))
}

func Selector(expr string) slog.Attr {
	return slog.String("selector", expr)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
