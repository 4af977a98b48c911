package localconversation

import "sync"

// Record одна реплика локальной истории. Role хранится строкой (user|model), как её ждут провайдеры.
type Record struct {
	Role string
	Text string
}

// LocalConversation имитирует сущность диалога на стороне приложения.
// Префикс (праймер) задаётся при создании и никогда не усекается;
// обмены репликами дописываются в хвост, который при maxRecords > 0 усекается парами.
type LocalConversation struct {
	ID         string
	prefix     []Record
	records    []Record
	maxRecords int
	mu         sync.Mutex
}

// New создаёт новый локальный диалог с праймером и ограничением на размер хвоста истории.
func New(id string, maxRecords int, prefix ...Record) *LocalConversation {
	if maxRecords < 0 {
		maxRecords = 0
	}
	return &LocalConversation{
		ID:         id,
		prefix:     append([]Record(nil), prefix...),
		records:    make([]Record, 0, maxRecords),
		maxRecords: maxRecords,
	}
}

// AppendExchange добавляет в историю пару «запрос пользователя, ответ модели».
func (lc *LocalConversation) AppendExchange(request, response string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.records = append(lc.records,
		Record{Role: "user", Text: request},
		Record{Role: "model", Text: response},
	)
	if lc.maxRecords > 0 {
		// Оставляем последние обмены целиком, чтобы хвост начинался с реплики пользователя
		for len(lc.records) > lc.maxRecords && len(lc.records) >= 2 {
			lc.records = lc.records[2:]
		}
	}
}

// History возвращает копию истории: праймер, затем хвост.
func (lc *LocalConversation) History() []Record {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]Record, 0, len(lc.prefix)+len(lc.records))
	out = append(out, lc.prefix...)
	return append(out, lc.records...)
}

// Len количество реплик в хвосте (без праймера).
func (lc *LocalConversation) Len() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.records)
}
