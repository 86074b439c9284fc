package pool

import (
	"fmt"
	"sync"

	"poolserv/internal/events"
	"poolserv/internal/logger"
)

// Job はプールに投入される一回限りの仕事
// 引数と戻り値を持たず、投入後はプール側が所有する
type Job func()

// ThreadPool は固定数のWorkerとジョブ投入口を持つ
type ThreadPool struct {
	queue   *dispatchQueue
	workers []*Worker
	bus     *events.Bus

	shutdown sync.Once
}

// New は size 個のWorkerを持つプールを作成する
// size が 1 未満の場合はエラーを返す（0ワーカーへ黙って縮退しない）
func New(size int) (*ThreadPool, error) {
	return NewWithBus(size, nil)
}

// NewWithBus はライフサイクルイベントを bus へ発行するプールを作成する
// 各Workerのゴルーチンは作成直後からキューの受信でブロックする
func NewWithBus(size int, bus *events.Bus) (*ThreadPool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	p := &ThreadPool{
		queue:   newDispatchQueue(),
		workers: make([]*Worker, 0, size),
		bus:     bus,
	}

	for id := 0; id < size; id++ {
		p.workers = append(p.workers, newWorker(id, p.queue, bus))
	}

	logger.Info("", "thread pool started with %d workers", size)
	if bus != nil {
		bus.Publish(events.NewPoolStartedEvent(size))
	}

	return p, nil
}

// Execute はジョブをキューへ送る
// キューは無制限なのでブロックしない。シャットダウン開始後は受け付けず false を返す
// 受理の判定はキューのロックの下で行われるため、true が返ったジョブは
// 必ずterminateより前にキューへ入っており、破棄されることはない
// 複数のゴルーチンから並行に呼べる
func (p *ThreadPool) Execute(job Job) bool {
	if !p.queue.send(message{kind: msgNewJob, job: job}) {
		if p.bus != nil {
			p.bus.Publish(events.NewJobRefusedEvent())
		}
		return false
	}
	return true
}

// Shutdown はプールを二段階で停止する。2回目以降の呼び出しは何もしない
//
// まず全Workerぶんのterminateを送り終えてから、各Workerをjoinする
// 送信とjoinをWorkerごとに交互に行うと、忙しいWorker宛のterminateを
// 空いている別のWorkerが先に消費し、joinが永遠に返らないことがある
//
// キューはFIFOなので、Shutdown開始前に受理されたジョブはどのterminateよりも
// 先に配送される
func (p *ThreadPool) Shutdown() {
	p.shutdown.Do(func() {
		logger.Info("", "sending terminate message to all workers")
		p.queue.close(len(p.workers))

		logger.Info("", "shutting down all workers")
		for _, w := range p.workers {
			logger.Debug("", "shutting down worker %d", w.id)
			w.join()
		}

		if p.bus != nil {
			p.bus.Publish(events.NewPoolShutdownEvent(len(p.workers)))
		}
		logger.Info("", "thread pool stopped")
	})
}

// Size はワーカー数を返す
func (p *ThreadPool) Size() int {
	return len(p.workers)
}

// QueueLen は未配送のメッセージ数を返す
func (p *ThreadPool) QueueLen() int {
	return p.queue.len()
}
