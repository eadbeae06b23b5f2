package domain

// ProducerRequest — запрос на публикацию одного события.
// Partition == nil → партицию выбирает партиционер по умолчанию.
type ProducerRequest struct {
	Topic     string
	Key       any
	Value     map[string]any
	Partition *int
	Headers   map[string]string
}

// DeliveryReport — подтверждение (или отказ) брокера по отправленному сообщению.
type DeliveryReport struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Err       error
}

// Delivered — брокер принял сообщение.
func (r DeliveryReport) Delivered() bool { return r.Err == nil }
