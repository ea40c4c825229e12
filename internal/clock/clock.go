// Package clock реализует гибридные логические часы (HLC) для упорядочивания
// событий между репликами без доверия к физическому времени.
//
// Значение часов упаковывается в один int64: в старших 48 битах UTC
// миллисекунды, в младших 16 битах счетчик для событий внутри одной
// миллисекунды и для продвижения при остановившемся или отставшем
// wall-clock. Значения сравнимы между репликами обычным сравнением int64
// и восстановимы до wall-времени для отображения.
//
// Функции чистые: состояние (последнее выданное значение) хранит
// вызывающая сторона, у локального стора оно лежит в манифесте.
package clock

import "time"

const (
	counterBits = 16
	counterMask = (1 << counterBits) - 1
)

// Pack собирает значение HLC из миллисекунд и счетчика.
func Pack(wallMillis int64, counter uint16) int64 {
	return wallMillis<<counterBits | int64(counter)
}

// Unpack раскладывает значение HLC на миллисекунды и счетчик.
func Unpack(ts int64) (wallMillis int64, counter uint16) {
	return ts >> counterBits, uint16(ts & counterMask)
}

// Next возвращает следующее значение часов, строго большее last.
// Если wall-clock ушел вперед, берется он; если стоит или откатился,
// растет счетчик, а при его переполнении часы продвигаются на
// миллисекунду вперед логически.
func Next(last int64, now time.Time) int64 {
	wall := now.UnixMilli()
	lastWall, lastCounter := Unpack(last)

	if wall > lastWall {
		return Pack(wall, 0)
	}
	if lastCounter < counterMask {
		return Pack(lastWall, lastCounter+1)
	}
	return Pack(lastWall+1, 0)
}

// Observe сливает удаленную метку в локальные часы: результат строго
// больше и last, и remote. Вызывается при приеме записей другой реплики,
// чтобы последующие локальные события упорядочивались после принятых.
func Observe(last, remote int64, now time.Time) int64 {
	if remote > last {
		last = remote
	}
	return Next(last, now)
}

// WallTime возвращает wall-время метки в UTC. Счетчик отбрасывается:
// для отображения и экспорта важна только миллисекундная часть.
func WallTime(ts int64) time.Time {
	wall, _ := Unpack(ts)
	return time.UnixMilli(wall).UTC()
}

// Now возвращает значение часов для текущего момента без учета
// предыдущего состояния. Используется только для инициализации.
func Now(now time.Time) int64 {
	return Pack(now.UnixMilli(), 0)
}
