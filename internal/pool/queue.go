package pool

import "sync"

// messageKind はディスパッチキューを流れるメッセージの種別
type messageKind int

const (
	msgNewJob messageKind = iota
	msgTerminate
)

// message はタグ付きのメッセージ
// msgNewJob のとき job を1つ運び、msgTerminate のとき payload はない
type message struct {
	kind messageKind
	job  Job
}

// dispatchQueue は投入側からワーカーへメッセージを運ぶ容量無制限のFIFOキュー
// send は複数ゴルーチンから並行に呼べる
// 受信側は全ワーカーで共有され、mu が取り出しを直列化する
type dispatchQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []message
	closed bool
}

func newDispatchQueue() *dispatchQueue {
	q := &dispatchQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// send はメッセージを末尾に追加する
// 容量は無制限なのでブロックしない。close 後は受け付けず false を返す
func (q *dispatchQueue) send(m message) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, m)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// close はキューを閉じ、同じロックの下で n 個のterminateを末尾に積む
// closed の設定とterminateの追加がひとつのロック区間で行われるため、
// 受理されたジョブは必ずどのterminateよりも先にキューへ入っている
func (q *dispatchQueue) close(n int) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for i := 0; i < n; i++ {
		q.items = append(q.items, message{kind: msgTerminate})
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

// recv は先頭のメッセージを1つ取り出す。キューが空の間はブロックする
// ロックは取り出しの間だけ保持され、呼び出し側がメッセージを処理する時点では
// すでに解放されている
func (q *dispatchQueue) recv() message {
	q.mu.Lock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	m := q.items[0]
	q.items[0] = message{} // ジョブへの参照を残さない
	q.items = q.items[1:]
	q.mu.Unlock()
	return m
}

// len は未配送のメッセージ数を返す
func (q *dispatchQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
