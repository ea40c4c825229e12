package api

// CursorHeader задает заголовок ответа потока записей с курсором сервера.
// Клиент сохраняет значение в манифесте реплики после успешной сессии.
const CursorHeader = "X-Endlog-Cursor"

// PushResponse представляет итог приема батча записей сервером
type PushResponse struct {
	Accepted  int   `json:"accepted"`  // записей, изменивших состояние сервера
	Conflicts int   `json:"conflicts"` // записей, отклоненных доминирующей серверной копией
	Cursor    int64 `json:"cursor"`    // курсор сервера после приема батча
}
