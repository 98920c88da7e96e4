package xslog

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/garrettladley/imisrelay/internal/version"
	"github.com/garrettladley/imisrelay/internal/xhttp"
)

const (
	keyError = "error"
)

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}

func RequestID(requestID string) slog.Attr {
	const requestIDKey = "request_id"
	return slog.String(requestIDKey, requestID)
}

func Stack() slog.Attr {
	const stackKey = "stack"
	return slog.String(stackKey, string(debug.Stack()))
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func RequestMethod(r *http.Request) slog.Attr {
	const methodKey = "method"
	return slog.String(methodKey, r.Method)
}

func RequestPath(r *http.Request) slog.Attr {
	const pathKey = "path"
	return slog.String(pathKey, r.URL.Path)
}

func IP(ip string) slog.Attr {
	const ipKey = "ip"
	return slog.String(ipKey, ip)
}

func RequestIP(r *http.Request) slog.Attr {
	return IP(xhttp.GetRequestIP(r))
}

func Version() slog.Attr {
	const versionKey = "version"
	return slog.String(versionKey, version.Get())
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}

func TotalCount(count int64) slog.Attr {
	const totalKey = "total"
	return slog.Int64(totalKey, count)
}

func SubscriptionID(id string) slog.Attr {
	const subscriptionIDKey = "subscription_id"
	return slog.String(subscriptionIDKey, id)
}

func NotificationID(id int64) slog.Attr {
	const notificationIDKey = "notification_id"
	return slog.Int64(notificationIDKey, id)
}

func Criteria(criteria string) slog.Attr {
	const criteriaKey = "criteria"
	return slog.String(criteriaKey, criteria)
}

func RemoteURL(url string) slog.Attr {
	const remoteURLKey = "remote_url"
	return slog.String(remoteURLKey, url)
}

func CallbackURL(url string) slog.Attr {
	const callbackURLKey = "callback_url"
	return slog.String(callbackURLKey, url)
}

func ResourceType(resourceType string) slog.Attr {
	const resourceTypeKey = "resource_type"
	return slog.String(resourceTypeKey, resourceType)
}

func ContentType(contentType string) slog.Attr {
	const contentTypeKey = "content_type"
	return slog.String(contentTypeKey, contentType)
}

func Bytes(n int) slog.Attr {
	const bytesKey = "bytes"
	return slog.Int(bytesKey, n)
}

func Driver(driver string) slog.Attr {
	const driverKey = "driver"
	return slog.String(driverKey, driver)
}

func Backoff(d time.Duration) slog.Attr {
	const backoffKey = "backoff"
	return slog.Duration(backoffKey, d)
}

func EventType(eventType string) slog.Attr {
	const eventTypeKey = "event_type"
	return slog.String(eventTypeKey, eventType)
}

func Data(data string) slog.Attr {
	const dataKey = "data"
	return slog.String(dataKey, data)
}
