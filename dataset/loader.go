package dataset

import (
	"io"
	"sync"
)

// Batch собранный батч признаков
type Batch struct {
	Names    []string
	Labels   []Label
	Features [][][]float32 // [batch][nMels][frames]
}

// Size возвращает количество элементов в батче
func (b *Batch) Size() int {
	return len(b.Features)
}

type prefetched struct {
	batch *Batch
	err   error
}

// Loader последовательно собирает батчи из датасета
// Обход строго линейный, без перемешивания. Опциональный prefetch
// выполняется одной горутиной и не меняет порядок батчей.
type Loader struct {
	dataset   *Dataset
	batchSize int
	next      int
	ch        chan prefetched
	done      chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewLoader создаёт загрузчик батчей
func NewLoader(d *Dataset, batchSize int) *Loader {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Loader{
		dataset:   d,
		batchSize: batchSize,
	}
}

// NumBatches возвращает количество батчей (последний может быть неполным)
func (l *Loader) NumBatches() int {
	return (l.dataset.Len() + l.batchSize - 1) / l.batchSize
}

// StartPrefetch запускает фоновую горутину, которая собирает батчи
// заранее, начиная с текущей позиции обхода. depth - глубина буфера.
// После первой ошибки prefetch останавливается: обход fail-fast,
// без восстановления. Если обход прекращается до io.EOF, горутину
// нужно остановить через Close.
func (l *Loader) StartPrefetch(depth int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ch != nil || l.closed {
		return
	}
	if depth < 1 {
		depth = 1
	}
	l.ch = make(chan prefetched, depth)
	l.done = make(chan struct{})
	start := l.next

	go func() {
		defer close(l.ch)
		for i := start; i < l.NumBatches(); i++ {
			batch, err := l.collate(i)
			select {
			case l.ch <- prefetched{batch: batch, err: err}:
			case <-l.done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

// Next возвращает следующий батч или io.EOF когда датасет исчерпан
// Первая же ошибка загрузки элемента прерывает обход
func (l *Loader) Next() (*Batch, error) {
	if l.ch != nil {
		p, ok := <-l.ch
		if !ok {
			return nil, io.EOF
		}
		return p.batch, p.err
	}

	if l.next >= l.NumBatches() {
		return nil, io.EOF
	}
	batch, err := l.collate(l.next)
	l.next++
	return batch, err
}

// Close останавливает prefetch горутину. Обязателен при досрочном
// прекращении обхода: без него горутина навсегда блокируется на
// отправке в заполненный канал. Повторный вызов и вызов без
// запущенного prefetch безопасны.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	if l.done != nil {
		close(l.done)
	}
}

// collate собирает батч с индексом batchIdx
func (l *Loader) collate(batchIdx int) (*Batch, error) {
	start := batchIdx * l.batchSize
	end := start + l.batchSize
	if end > l.dataset.Len() {
		end = l.dataset.Len()
	}

	batch := &Batch{
		Names:    make([]string, 0, end-start),
		Labels:   make([]Label, 0, end-start),
		Features: make([][][]float32, 0, end-start),
	}

	for i := start; i < end; i++ {
		item, err := l.dataset.At(i)
		if err != nil {
			return nil, err
		}
		batch.Names = append(batch.Names, item.Name)
		batch.Labels = append(batch.Labels, item.Label)
		batch.Features = append(batch.Features, item.Features)
	}

	return batch, nil
}
