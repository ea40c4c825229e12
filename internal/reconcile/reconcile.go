// Package reconcile реализует детерминированную реконсиляцию двух реплик
// журнала. Планирование чистое и свободно от ключа: решения принимаются
// только по метаданным вне конверта (ревизия, tombstone, updated_at,
// author_device) и байтам конверта.
package reconcile

import (
	"slices"

	"github.com/prismschism/endlog/internal/models"
)

// Stats содержит счетчики результата планирования
type Stats struct {
	Pulled    int // записей применяется локально
	Pushed    int // записей не хватает удаленной реплике
	Conflicts int // конфликтов равных ревизий, проигравшие сохранены вариантами
	Unchanged int // записей уже согласовано
}

// Plan представляет результат сравнения двух реплик.
// Сходимость: после применения Pulls+Variants локально и отправки
// Pushes+Variants удаленной стороне обе реплики держат одинаковое
// множество записей, и повторное планирование дает пустой план.
type Plan struct {
	Pulls    []*models.EncryptedRecord // применить локально (только-удаленные и победившие удаленные)
	Pushes   []*models.EncryptedRecord // отправить удаленной реплике (только-локальные и победившие локальные)
	Variants []*models.EncryptedRecord // проигравшие равных ревизий, сохраняемые на обеих сторонах
	Stats    Stats
}

// Empty сообщает, что реплики уже согласованы
func (p *Plan) Empty() bool {
	return len(p.Pulls) == 0 && len(p.Pushes) == 0 && len(p.Variants) == 0
}

// ApplySet возвращает записи для локального применения одним батчем
func (p *Plan) ApplySet() []*models.EncryptedRecord {
	out := make([]*models.EncryptedRecord, 0, len(p.Pulls)+len(p.Variants))
	out = append(out, p.Pulls...)
	out = append(out, p.Variants...)
	return out
}

// PushSet возвращает записи для отправки удаленной реплике
func (p *Plan) PushSet() []*models.EncryptedRecord {
	out := make([]*models.EncryptedRecord, 0, len(p.Pushes)+len(p.Variants))
	out = append(out, p.Pushes...)
	out = append(out, p.Variants...)
	return out
}

// Compute строит план реконсиляции локального и удаленного множеств.
// Каждая сторона предварительно сводится к фронту (доминирующая запись
// на id), затем идентификаторы разбиваются на только-локальные,
// только-удаленные и общие:
//   - только-локальные уходят в Pushes, только-удаленные в Pulls;
//   - на общих доминирование решает models.Compare: большая ревизия
//     выигрывает, tombstone на ревизии N перекрывает живые <= N;
//   - равные ревизии с расходящимся содержимым дают конфликт: победитель
//     вытесняет проигравшего, проигравший сохраняется вариантом с
//     детерминированным id на обеих репликах.
//
// План детерминирован относительно порядка входа и идемпотентен:
// повторное планирование после применения дает пустой план.
func Compute(local, remote []*models.EncryptedRecord) *Plan {
	localFront := frontier(local)
	remoteFront := frontier(remote)

	plan := &Plan{}

	for _, id := range sortedIDs(localFront, remoteFront) {
		l, inLocal := localFront[id]
		r, inRemote := remoteFront[id]

		switch {
		case inLocal && !inRemote:
			plan.Pushes = append(plan.Pushes, l)

		case !inLocal && inRemote:
			plan.Pulls = append(plan.Pulls, r)

		default:
			cmp := models.Compare(l, r)
			switch {
			case cmp == 0:
				plan.Stats.Unchanged++
			case cmp > 0:
				plan.Pushes = append(plan.Pushes, l)
				if l.Revision == r.Revision {
					plan.Variants = append(plan.Variants, r.AsVariant())
				}
			default:
				plan.Pulls = append(plan.Pulls, r)
				if l.Revision == r.Revision {
					plan.Variants = append(plan.Variants, l.AsVariant())
				}
			}
		}
	}

	plan.Stats.Pulled = len(plan.Pulls)
	plan.Stats.Pushed = len(plan.Pushes)
	plan.Stats.Conflicts = len(plan.Variants)
	return plan
}

// frontier сводит произвольное множество записей к доминирующей на id
func frontier(records []*models.EncryptedRecord) map[string]*models.EncryptedRecord {
	front := make(map[string]*models.EncryptedRecord, len(records))
	for _, rec := range records {
		cur, ok := front[rec.ID]
		if !ok || models.Compare(rec, cur) > 0 {
			front[rec.ID] = rec
		}
	}
	return front
}

// sortedIDs возвращает объединение идентификаторов двух фронтов в
// стабильном порядке
func sortedIDs(a, b map[string]*models.EncryptedRecord) []string {
	ids := make([]string, 0, len(a)+len(b))
	for id := range a {
		ids = append(ids, id)
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
