package steps

import (
	"context"
	"fmt"
	"time"
)

// FunctionDelay — пауза внутри workflow (например, ожидание CI).
const FunctionDelay = "delay"

// DelayFunction ждёт заданное время или отмену контекста.
//
//	params:
//	  duration: 90s       # time.ParseDuration
//	  duration_sec: 10    # или целые секунды
//	  duration_ms: 500    # или миллисекунды
//	  reason: wait for CI # попадает в output
type DelayFunction struct {
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDelayFunction создаёт DelayFunction.
func NewDelayFunction() *DelayFunction {
	return &DelayFunction{sleep: sleepContext}
}

// Name возвращает имя функции.
func (f *DelayFunction) Name() string {
	return FunctionDelay
}

// Run ждёт. Отмена контекста — ErrStepCancelled.
func (f *DelayFunction) Run(ctx context.Context, req *Request) (*Response, error) {
	d, err := delayDuration(req.Params)
	if err != nil {
		return nil, err
	}

	if err := f.sleep(ctx, d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, err)
	}

	output := map[string]any{
		"duration_ms": d.Milliseconds(),
	}
	if reason := GetParamString(req.Params, "reason"); reason != "" {
		output["reason"] = reason
	}
	return NewResponse(output), nil
}

func delayDuration(params map[string]any) (time.Duration, error) {
	if s := GetParamString(params, "duration"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("%w: %s: invalid duration %q", ErrInvalidParams, FunctionDelay, s)
		}
		return d, nil
	}
	if sec := GetParamInt(params, "duration_sec"); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}
	if ms := GetParamInt(params, "duration_ms"); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: %s: duration, duration_sec or duration_ms required",
		ErrInvalidParams, FunctionDelay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
