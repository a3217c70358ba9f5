package worker

import "context"

// Pacer — пауза между итерациями (governor.Governor).
type Pacer interface {
	Sleep(ctx context.Context) error
}

// Loop — типовой цикл job стадии:
//
//  1. выйти, если ctx отменён (кооперативная отмена раз за итерацию)
//  2. дождаться открытия Gate
//  3. выполнить единицу работы
//  4. выдержать паузу Pacer независимо от результата
//
// Ошибка unit завершает job — супервизор её перезапустит.
// Сами стадии логируют и поглощают ожидаемые ошибки.
func Loop(ctx context.Context, gate *Gate, pacer Pacer, unit func(ctx context.Context) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if gate != nil {
			if err := gate.Wait(ctx); err != nil {
				return nil
			}
		}
		if err := unit(ctx); err != nil {
			return err
		}
		if pacer != nil {
			if err := pacer.Sleep(ctx); err != nil {
				return nil
			}
		}
	}
}
