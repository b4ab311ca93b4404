package cycle

import "github.com/shaiso/Cyclone/internal/domain"

// NTuple — доступ цикла к потокам текущего датасета.
// Потоки подключаются раннером перед BeginInputData.
type NTuple struct {
	in  Input
	out Output
}

// AttachStreams подключает потоки датасета.
func (n *NTuple) AttachStreams(in Input, out Output) {
	n.in, n.out = in, out
}

// DetachStreams отключает потоки после EndInputData.
func (n *NTuple) DetachStreams() {
	n.in, n.out = nil, nil
}

// ConnectInputField связывает поле входного потока с переменной.
func (n *NTuple) ConnectInputField(stream, field string, target any) error {
	if n.in == nil {
		return ErrNoStreams
	}
	return n.in.ConnectInputField(stream, field, target)
}

// DeclareOutputField объявляет поле выходного потока.
func (n *NTuple) DeclareOutputField(target any, field, stream string) error {
	if n.out == nil {
		return ErrNoStreams
	}
	return n.out.DeclareOutputField(target, field, stream)
}

// InputRecord возвращает текущую запись входного потока целиком.
func (n *NTuple) InputRecord(stream string) domain.Record {
	if n.in == nil {
		return nil
	}
	return n.in.Current(stream)
}
