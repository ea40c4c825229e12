package models

// StoreFormatVersion задает текущую версию формата локального стора.
// Стор, записанный более новой версией, открыть нельзя.
const StoreFormatVersion = 1

// Manifest хранит служебное состояние реплики: версию формата, идентификатор
// устройства, соль деривации ключей, логические часы и курсор последней
// синхронизации. Хранится в отдельном bucket стора и переживает рестарты.
type Manifest struct {
	KeySalt       []byte // KeySalt соль argon2id, создается при инициализации стора
	DeviceID      string // DeviceID идентификатор этой реплики (UUID)
	FormatVersion int64  // FormatVersion версия формата стора
	Clock         int64  // Clock последнее выданное значение HLC
	LastSyncClock int64  // LastSyncClock локальный HLC на момент последней успешной синхронизации
	RemoteCursor  int64  // RemoteCursor последовательность сервера после последней синхронизации
}
