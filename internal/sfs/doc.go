// Package sfs реализует канал корреспонденции с налоговой службой.
//
// # Обзор
//
// Бридж отправляет в канал XML-запросы справок и затем опрашивает его:
// сначала количество готовых документов (CheckRequest), затем сами
// документы (ReceiveRequest).
//
// ## Client
//
// HTTP-реализация интерфейса Correspondence. Ошибки транспорта
// оборачивают ErrRequest, не-2xx возвращается как *StatusError.
//
// ## XML
//
// BuildRequest формирует элемент <request> (HNUM, HTIN, HLNAMEU,
// HLNAME, HPNAME, HFNAME, ID, HFILL). ValidateRequest проверяет
// обязательные поля и взаимоисключение имени юрлица и физлица.
package sfs
