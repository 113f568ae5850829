package grpc

import (
	"context"

	"google.golang.org/grpc"

	"queuesmart/backend/internal/api/dto"
)

const ServiceName = "queuesmart.v1.QueueService"

type QueueServiceServer interface {
	CreateAppointment(context.Context, *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	EditAppointment(context.Context, *dto.EditAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(context.Context, *dto.AppointmentIDRequest) (*dto.Empty, error)
	ApproveAppointment(context.Context, *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error)
	RejectAppointment(context.Context, *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error)
	ServeAppointment(context.Context, *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error)
	CompleteAppointment(context.Context, *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error)
	GetAppointment(context.Context, *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error)
	ListMyAppointments(context.Context, *dto.Empty) (*dto.AppointmentList, error)
	StaffDashboard(context.Context, *dto.Empty) (*dto.Dashboard, error)
	DailySchedule(context.Context, *dto.ScheduleRequest) (*dto.Schedule, error)

	ListSlots(context.Context, *dto.ListSlotsRequest) (*dto.SlotList, error)
	ListOpenSlots(context.Context, *dto.ListSlotsRequest) (*dto.SlotList, error)
	AddSlot(context.Context, *dto.SlotRequest) (*dto.SlotResponse, error)
	AddWeeklySlots(context.Context, *dto.WeeklySlotsRequest) (*dto.SlotList, error)
	ToggleSlot(context.Context, *dto.SlotIDRequest) (*dto.SlotResponse, error)
	RemoveSlot(context.Context, *dto.SlotIDRequest) (*dto.Empty, error)
	AvailabilityCalendar(context.Context, *dto.CalendarRequest) (*dto.Calendar, error)

	ListNotifications(context.Context, *dto.Empty) (*dto.Inbox, error)
	UnreadCount(context.Context, *dto.Empty) (*dto.UnreadCount, error)
	MarkAllRead(context.Context, *dto.Empty) (*dto.MarkedRead, error)
	DeleteNotification(context.Context, *dto.NotificationIDRequest) (*dto.Empty, error)
}

// publicMethods may be called without a bearer token.
var publicMethods = map[string]bool{
	FullMethod("ListSlots"):     true,
	FullMethod("ListOpenSlots"): true,
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// QueueServiceDesc is written by hand in the shape protoc-gen-go-grpc emits.
var QueueServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueueServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateAppointment", QueueServiceServer.CreateAppointment),
		unary("EditAppointment", QueueServiceServer.EditAppointment),
		unary("CancelAppointment", QueueServiceServer.CancelAppointment),
		unary("ApproveAppointment", QueueServiceServer.ApproveAppointment),
		unary("RejectAppointment", QueueServiceServer.RejectAppointment),
		unary("ServeAppointment", QueueServiceServer.ServeAppointment),
		unary("CompleteAppointment", QueueServiceServer.CompleteAppointment),
		unary("GetAppointment", QueueServiceServer.GetAppointment),
		unary("ListMyAppointments", QueueServiceServer.ListMyAppointments),
		unary("StaffDashboard", QueueServiceServer.StaffDashboard),
		unary("DailySchedule", QueueServiceServer.DailySchedule),
		unary("ListSlots", QueueServiceServer.ListSlots),
		unary("ListOpenSlots", QueueServiceServer.ListOpenSlots),
		unary("AddSlot", QueueServiceServer.AddSlot),
		unary("AddWeeklySlots", QueueServiceServer.AddWeeklySlots),
		unary("ToggleSlot", QueueServiceServer.ToggleSlot),
		unary("RemoveSlot", QueueServiceServer.RemoveSlot),
		unary("AvailabilityCalendar", QueueServiceServer.AvailabilityCalendar),
		unary("ListNotifications", QueueServiceServer.ListNotifications),
		unary("UnreadCount", QueueServiceServer.UnreadCount),
		unary("MarkAllRead", QueueServiceServer.MarkAllRead),
		unary("DeleteNotification", QueueServiceServer.DeleteNotification),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterQueueServiceServer(s grpc.ServiceRegistrar, srv QueueServiceServer) {
	s.RegisterService(&QueueServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(QueueServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(QueueServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(QueueServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
