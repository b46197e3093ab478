package instrument

import "github.com/vango-dev/silo/pkg/silo"

type multi []silo.Instrument

// Multi combines instruments. Finishers run in reverse start order. Nil
// instruments are skipped.
func Multi(instruments ...silo.Instrument) silo.Instrument {
	var m multi
	for _, in := range instruments {
		if in != nil {
			m = append(m, in)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multi) StartDispatch(info silo.DispatchInfo) func(silo.DispatchResult) {
	var finishers []func(silo.DispatchResult)
	for _, in := range m {
		if done := in.StartDispatch(info); done != nil {
			finishers = append(finishers, done)
		}
	}
	if len(finishers) == 0 {
		return nil
	}
	return func(res silo.DispatchResult) {
		for i := len(finishers) - 1; i >= 0; i-- {
			finishers[i](res)
		}
	}
}
