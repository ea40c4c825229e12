package models

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"

	"github.com/google/uuid"
)

// TagConflict служебный тег, который получает проигравшая сторона
// конфликта ревизий, сохраненная как исторический вариант.
const TagConflict = "conflict"

// variantNamespace задает UUID namespace для детерминированных
// идентификаторов
// вариантов (uuid v5). Обе реплики вычисляют один и тот же id варианта,
// поэтому повторная реконсиляция не плодит дубликаты.
var variantNamespace = uuid.MustParse("b4a57a48-9f6e-5d3b-8c21-7e0f2a9d11c5")

// EncryptedRecord представляет одну ревизию записи журнала в запечатанном
// виде, единицу хранения локального стора и обмена между репликами.
// Метаданные вне конверта (id, revision, updated_at, теги, tombstone)
// позволяют листингу и реконсиляции работать без ключа; тело и created_at
// доступны только внутри ciphertext.
type EncryptedRecord struct {
	Tags         []string `json:"tags,omitempty"`       // Tags теги вне конверта (для фильтрации без ключа)
	Nonce        []byte   `json:"nonce"`                // Nonce одноразовый nonce AES-GCM (12 bytes)
	Ciphertext   []byte   `json:"ciphertext"`           // Ciphertext запечатанный канонический JSON записи
	AuthTag      []byte   `json:"auth_tag"`             // AuthTag тег аутентификации GCM (16 bytes)
	ID           string   `json:"id"`                   // ID идентификатор записи (UUID)
	AuthorDevice string   `json:"author_device"`        // AuthorDevice реплика, создавшая эту ревизию
	VariantOf    string   `json:"variant_of,omitempty"` // VariantOf id исходной записи, если это сохраненный вариант конфликта
	Revision     int64    `json:"revision"`             // Revision номер ревизии (с 1)
	UpdatedAt    int64    `json:"updated_at"`           // UpdatedAt логическая метка изменения (HLC)
	Tombstone    bool     `json:"tombstone,omitempty"`
}

// HasTag проверяет наличие тега во внешнем наборе.
func (r *EncryptedRecord) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// Validate проверяет структурную полноту записи: идентификация, метка
// времени и все три части конверта на месте. Используется при чтении
// потока реплики и при recovery-сканировании стора.
func (r *EncryptedRecord) Validate() error {
	switch {
	case r.ID == "":
		return errors.New("record id is empty")
	case r.Revision < 1:
		return errors.New("record revision is not positive")
	case r.AuthorDevice == "":
		return errors.New("record author device is empty")
	case r.UpdatedAt <= 0:
		return errors.New("record updated timestamp is not positive")
	case len(r.Nonce) == 0 || len(r.Ciphertext) == 0 || len(r.AuthTag) == 0:
		return errors.New("record envelope is incomplete")
	}
	return nil
}

// SameContent сообщает, являются ли две записи копиями одного и того же
// запечатанного состояния. Конверт запечатывается один раз в точке
// происхождения и дальше копируется байт-в-байт, поэтому равенство
// конверта означает равенство содержимого.
func (r *EncryptedRecord) SameContent(other *EncryptedRecord) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(r.Nonce, other.Nonce) &&
		bytes.Equal(r.Ciphertext, other.Ciphertext) &&
		bytes.Equal(r.AuthTag, other.AuthTag)
}

// Compare определяет доминирующую сторону для двух ревизий одной записи.
// Возвращает >0 если a доминирует, <0 если b, 0 если это одна и та же
// запись. Порядок:
//  1. Большая ревизия выигрывает (tombstone на ревизии N перекрывает
//     живые ревизии <= N; живая ревизия > N воскрешает запись).
//  2. Равные ревизии с равным конвертом считаются одной записью.
//  3. При равных ревизиях, где ровно одна сторона tombstone, tombstone
//     выигрывает.
//  4. Позже updated_at выигрывает.
//  5. Лексикографически меньший author_device выигрывает.
//  6. Детерминированный финальный разрыв: меньший ciphertext выигрывает.
func Compare(a, b *EncryptedRecord) int {
	if a.Revision != b.Revision {
		if a.Revision > b.Revision {
			return 1
		}
		return -1
	}
	if a.SameContent(b) {
		return 0
	}
	if a.Tombstone != b.Tombstone {
		if a.Tombstone {
			return 1
		}
		return -1
	}
	if a.UpdatedAt != b.UpdatedAt {
		if a.UpdatedAt > b.UpdatedAt {
			return 1
		}
		return -1
	}
	if a.AuthorDevice != b.AuthorDevice {
		if a.AuthorDevice < b.AuthorDevice {
			return 1
		}
		return -1
	}
	return -bytes.Compare(a.Ciphertext, b.Ciphertext)
}

// Dominates возвращает true, если r перекрывает other при реконсиляции.
func (r *EncryptedRecord) Dominates(other *EncryptedRecord) bool {
	return Compare(r, other) > 0
}

// VariantID вычисляет детерминированный идентификатор для сохранения этой
// записи как исторического варианта конфликта. Одинаковый на всех
// репликах при одинаковом входе.
func (r *EncryptedRecord) VariantID() string {
	rev := make([]byte, 8)
	binary.BigEndian.PutUint64(rev, uint64(r.Revision))

	buf := make([]byte, 0, len(r.ID)+len(r.AuthorDevice)+len(r.Ciphertext)+10)
	buf = append(buf, r.ID...)
	buf = append(buf, 0)
	buf = append(buf, rev...)
	buf = append(buf, r.AuthorDevice...)
	buf = append(buf, 0)
	buf = append(buf, r.Ciphertext...)

	return uuid.NewSHA1(variantNamespace, buf).String()
}

// AsVariant создает копию записи, сохраняемую как вариант конфликта:
// новый детерминированный id, ссылка на оригинал и внешний тег conflict.
// Ревизия и конверт копируются без изменений: перешифрование не
// требуется, реконсиляция остается свободной от ключа, а исходная пара
// (id, revision) восстановима для associated data при расшифровке.
func (r *EncryptedRecord) AsVariant() *EncryptedRecord {
	v := r.Clone()
	v.VariantOf = r.ID
	v.ID = r.VariantID()
	v.Tags = NormalizeTags(append(v.Tags, TagConflict))
	return v
}

// Clone создает глубокую копию записи
func (r *EncryptedRecord) Clone() *EncryptedRecord {
	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)
	if len(tags) == 0 {
		tags = nil
	}
	nonce := make([]byte, len(r.Nonce))
	copy(nonce, r.Nonce)
	ciphertext := make([]byte, len(r.Ciphertext))
	copy(ciphertext, r.Ciphertext)
	authTag := make([]byte, len(r.AuthTag))
	copy(authTag, r.AuthTag)

	return &EncryptedRecord{
		Tags:         tags,
		Nonce:        nonce,
		Ciphertext:   ciphertext,
		AuthTag:      authTag,
		ID:           r.ID,
		AuthorDevice: r.AuthorDevice,
		VariantOf:    r.VariantOf,
		Revision:     r.Revision,
		UpdatedAt:    r.UpdatedAt,
		Tombstone:    r.Tombstone,
	}
}
