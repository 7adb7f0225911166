package config

type WorkerKeyStruct struct {
	PersistProctorLogsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProctorLogsQueue: "persist_proctor_logs_queue",
}
