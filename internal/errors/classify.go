package errors

// Classify maps any failure, including nil, onto exactly one canonical code.
// It never fails; anything unrecognized is ErrUnknownError.
func Classify(err error) ErrorCode {
	return classifyCause(Inspect(err))
}

func classifyCause(c Cause) ErrorCode {
	switch c.Kind {
	case KindTimeout:
		return ErrTimeout
	case KindIO:
		return ErrIoError
	case KindInvalidArgument:
		return ErrParameterError
	case KindSerialization:
		return ErrJSONError
	case KindCancellation:
		// Only cancellations the caller did not ask for count as timeouts.
		// Requested ones have no code of their own and end up unknown.
		if !c.Requested {
			return ErrTimeout
		}
		return ErrUnknownError
	case KindTransport:
		return classifyTransport(c.Status)
	case KindOther:
		return ErrUnknownError
	default:
		return ErrUnknownError
	}
}

func classifyTransport(status TransportStatus) ErrorCode {
	switch status {
	case StatusNameResolutionFailure:
		return ErrParameterError
	case StatusConnectFailure,
		StatusReceiveFailure,
		StatusSendFailure,
		StatusPipelineFailure:
		return ErrIoError
	case StatusTimeout:
		return ErrTimeout
	case StatusUnknownError:
		return ErrUnknownError
	case StatusSuccess:
		// not a failure signal
		return ErrUnknownError
	default:
		return ErrIoError
	}
}
