package pool

import (
	"fmt"

	"poolserv/internal/events"
	"poolserv/internal/logger"
)

// Worker は1本のゴルーチンを所有し、共有キューからメッセージを取り出して処理する
type Worker struct {
	id   int
	done chan struct{} // join が一度取り出すと nil になる
}

// newWorker はワーカーを作成してループを開始する
func newWorker(id int, queue *dispatchQueue, bus *events.Bus) *Worker {
	w := &Worker{
		id:   id,
		done: make(chan struct{}),
	}
	// done はここで値渡しする。join が w.done を nil にするため、
	// フィールド経由で参照すると close(nil) になり得る
	go w.run(w.done, queue, bus)
	return w
}

// run はワーカーのメインループ
// recv の内部でのみキューのロックを保持し、ジョブの実行中は保持しない
func (w *Worker) run(done chan struct{}, queue *dispatchQueue, bus *events.Bus) {
	defer close(done)

	for {
		msg := queue.recv()

		switch msg.kind {
		case msgNewJob:
			logger.Debug(w.tag(), "got a job; executing")
			w.invoke(msg.job, bus)
		case msgTerminate:
			logger.Debug(w.tag(), "was told to terminate")
			if bus != nil {
				bus.Publish(events.NewWorkerTerminatedEvent(w.id))
			}
			return
		}
	}
}

// invoke はジョブを1回だけ実行する
// ジョブ内の panic は回収して記録し、ワーカーは次のメッセージの処理を続ける
func (w *Worker) invoke(job Job, bus *events.Bus) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(w.tag(), "job panicked: %v", r)
			if bus != nil {
				bus.Publish(events.NewWorkerPanicEvent(w.id, r))
			}
		}
	}()

	job()
}

// join はワーカーの終了を待つ
// done ハンドルは最初の呼び出しで取り出され、2回目以降は何もしない
func (w *Worker) join() {
	done := w.done
	if done == nil {
		return
	}
	w.done = nil
	<-done
}

func (w *Worker) tag() string {
	return fmt.Sprintf("worker-%d", w.id)
}
